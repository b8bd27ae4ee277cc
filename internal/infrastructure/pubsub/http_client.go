package pubsub

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

const (
	// EventHeader carries the topic the message has been published for.
	EventHeader = "X-Senda-Event"
	// DeliveryHeader carries a unique id per delivery, for endpoints to
	// detect duplicates.
	DeliveryHeader = "X-Senda-Delivery"

	maxErrorBodyLen = 512
)

// webhookClient POSTs messages to subscribed endpoints.
type webhookClient struct {
	*http.Client
}

func newWebhookClient(requestTimeout time.Duration) *webhookClient {
	return &webhookClient{&http.Client{Timeout: requestTimeout}}
}

// deliver POSTs message to the endpoint of sub. Secured subscriptions get an
// HS256 bearer token whose subject is topic. Any reply outside 2xx is an
// error.
func (c *webhookClient) deliver(sub Subscription, topic, message string) error {
	req, err := http.NewRequest(
		http.MethodPost, sub.Endpoint, bytes.NewBufferString(message),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, topic)
	req.Header.Set(DeliveryHeader, uuid.New().String())

	if sub.IsSecured() {
		token, err := signToken(sub.Secret, topic)
		if err != nil {
			return fmt.Errorf("failed to sign webhook token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK ||
		resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return fmt.Errorf(
			"webhook %s replied %d: %s", sub.ID, resp.StatusCode, bytes.TrimSpace(body),
		)
	}
	// Drain to let the connection be reused.
	//nolint
	io.Copy(io.Discard, resp.Body)
	return nil
}

func signToken(secret, topic string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		IssuedAt: time.Now().Unix(),
		Subject:  topic,
	})
	return token.SignedString([]byte(secret))
}
