package pubsub

import (
	"time"

	"github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/pkg/circuitbreaker"
)

const defaultRequestTimeout = 15 * time.Second

type service struct {
	store         *store
	webhookClient *webhookClient
	cb            *gobreaker.CircuitBreaker
}

// NewService returns a webhook pubsub persisting subscriptions in datadir.
// Messages are POSTed as JSON to every endpoint subscribed for the topic or
// for ports.AnyTopic. Secured endpoints get an HS256 bearer token.
func NewService(
	datadir string, logger badger.Logger, requestTimeout time.Duration,
) (ports.PubSub, error) {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	store, err := newStore(datadir, logger)
	if err != nil {
		return nil, err
	}

	return &service{
		store:         store,
		webhookClient: newWebhookClient(requestTimeout),
		cb:            circuitbreaker.NewCircuitBreaker("webhooks"),
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	if err := ws.store.add(sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(id string) error {
	return ws.store.remove(id)
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	return ws.listSubscriptionsForTopic(topic).toPortable()
}

func (ws *service) Publish(topic string, message string) error {
	return ws.publishForTopic(topic, message)
}

func (ws *service) Close() error {
	return ws.store.close()
}

func (ws *service) listSubscriptionsForTopic(topic string) subscriptions {
	subs, err := ws.store.listForTopic(topic)
	if err != nil {
		log.WithError(err).Warnf("failed to list webhooks for topic %s", topic)
		return nil
	}
	if topic != ports.AnyTopic && topic != ports.UnspecifiedTopic {
		subsForAnyTopic, err := ws.store.listForTopic(ports.AnyTopic)
		if err != nil {
			log.WithError(err).Warn("failed to list webhooks for any topic")
		}
		subs = append(subs, subsForAnyTopic...)
	}
	return subs
}

func (ws *service) publishForTopic(topic, message string) error {
	subs := ws.listSubscriptionsForTopic(topic)

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, topic, message) })
	}
	return eg.Wait()
}

func (ws *service) doRequest(sub Subscription, topic, message string) error {
	_, err := ws.cb.Execute(func() (interface{}, error) {
		return nil, ws.webhookClient.deliver(sub, topic, message)
	})
	return err
}
