package pubsub_test

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"

	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/infrastructure/pubsub"
)

const testMessage = `{"event":"DEPOSIT_CREATED","lot":{"id":"2fY9","amount":"1.000000","asset":"USDC"}}`

type received struct {
	path     string
	payload  string
	token    string
	event    string
	delivery string
}

type testWebServer struct {
	*httptest.Server
	lock     sync.Mutex
	requests []received
}

func newTestWebServer(t *testing.T) *testWebServer {
	ws := &testWebServer{}
	mux := http.NewServeMux()
	handleFn := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Bad method", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "Bad Content-Type header", http.StatusUnsupportedMediaType)
			return
		}
		defer r.Body.Close()
		payload, _ := io.ReadAll(r.Body)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		ws.lock.Lock()
		ws.requests = append(ws.requests, received{
			path:     r.URL.Path,
			payload:  string(payload),
			token:    token,
			event:    r.Header.Get(pubsub.EventHeader),
			delivery: r.Header.Get(pubsub.DeliveryHeader),
		})
		ws.lock.Unlock()
	}
	mux.HandleFunc("/lotevents", handleFn)
	mux.HandleFunc("/allevents", handleFn)
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	ws.Server = httptest.NewServer(mux)
	t.Cleanup(ws.Close)
	return ws
}

func (ws *testWebServer) received() []received {
	ws.lock.Lock()
	defer ws.lock.Unlock()
	return append([]received{}, ws.requests...)
}

func TestPubSubService(t *testing.T) {
	server := newTestWebServer(t)
	pubsubSvc := newTestService(t)

	secret := randomSecret()
	testSubs := []struct {
		topic    string
		endpoint string
		secret   string
	}{
		{"DEPOSIT_CREATED", server.URL + "/lotevents", secret},
		{"DEPOSIT_CREATED", server.URL + "/lotevents", ""},
		{"LOT_RELEASED", server.URL + "/lotevents", ""},
		{ports.AnyTopic, server.URL + "/allevents", ""},
	}
	for _, s := range testSubs {
		id, err := pubsubSvc.Subscribe(s.topic, s.endpoint, s.secret)
		require.NoError(t, err)
		require.NotEmpty(t, id)
	}

	subs := pubsubSvc.ListSubscriptionsForTopic("DEPOSIT_CREATED")
	require.Len(t, subs, 3)
	secured := 0
	for _, s := range subs {
		require.NotEmpty(t, s.Id())
		if s.IsSecured() {
			secured++
		}
	}
	require.Equal(t, 1, secured)
	require.Equal(t, ports.AnyTopic, subs[len(subs)-1].Topic())

	require.Len(t, pubsubSvc.ListSubscriptionsForTopic(ports.UnspecifiedTopic), 4)
	require.Len(t, pubsubSvc.ListSubscriptionsForTopic(ports.AnyTopic), 1)

	err := pubsubSvc.Publish("DEPOSIT_CREATED", testMessage)
	require.NoError(t, err)

	requests := server.received()
	require.Len(t, requests, 3)
	tokens := 0
	deliveries := make(map[string]struct{})
	for _, r := range requests {
		require.Equal(t, testMessage, r.payload)
		require.Equal(t, "DEPOSIT_CREATED", r.event)
		require.NotEmpty(t, r.delivery)
		deliveries[r.delivery] = struct{}{}
		if len(r.token) <= 0 {
			continue
		}
		tokens++
		token, err := jwt.Parse(r.token, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		require.NoError(t, err)
		require.True(t, token.Valid)
		claims, ok := token.Claims.(jwt.MapClaims)
		require.True(t, ok)
		require.Equal(t, "DEPOSIT_CREATED", claims["sub"])
	}
	require.Equal(t, 1, tokens)
	require.Len(t, deliveries, len(requests))

	for _, s := range pubsubSvc.ListSubscriptionsForTopic(ports.UnspecifiedTopic) {
		err := pubsubSvc.Unsubscribe(s.Id())
		require.NoError(t, err)
	}
	require.Empty(t, pubsubSvc.ListSubscriptionsForTopic(ports.UnspecifiedTopic))

	// Nothing to notify is not an error.
	err = pubsubSvc.Publish("LOT_CANCELLED", testMessage)
	require.NoError(t, err)
}

func TestPubSubServiceFailing(t *testing.T) {
	server := newTestWebServer(t)
	pubsubSvc := newTestService(t)

	t.Run("invalid subscription", func(t *testing.T) {
		tests := []struct {
			name     string
			topic    string
			endpoint string
		}{
			{"missing topic", "", server.URL + "/lotevents"},
			{"malformed endpoint", "LOT_RELEASED", "not an url"},
			{"unsupported scheme", "LOT_RELEASED", "ftp://localhost/lotevents"},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				id, err := pubsubSvc.Subscribe(tt.topic, tt.endpoint, "")
				require.Error(t, err)
				require.Empty(t, id)
			})
		}
	})

	t.Run("unknown subscription", func(t *testing.T) {
		err := pubsubSvc.Unsubscribe("unknown")
		require.ErrorIs(t, err, pubsub.ErrSubscriptionNotFound)
	})

	t.Run("endpoint replies with error", func(t *testing.T) {
		_, err := pubsubSvc.Subscribe("VAULT_HALTED", server.URL+"/broken", "")
		require.NoError(t, err)

		err = pubsubSvc.Publish("VAULT_HALTED", testMessage)
		require.Error(t, err)
		require.Contains(t, err.Error(), "replied 500: boom")
	})
}

func TestPubSubServicePersistence(t *testing.T) {
	datadir := t.TempDir()

	svc, err := pubsub.NewService(datadir, nil, time.Second)
	require.NoError(t, err)
	id, err := svc.Subscribe("LOT_RELEASED", "http://localhost:9000/hook", "")
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	svc, err = pubsub.NewService(datadir, nil, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		//nolint
		svc.Close()
	})

	subs := svc.ListSubscriptionsForTopic("LOT_RELEASED")
	require.Len(t, subs, 1)
	require.Equal(t, id, subs[0].Id())
}

func newTestService(t *testing.T) ports.PubSub {
	svc, err := pubsub.NewService("", nil, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		//nolint
		svc.Close()
	})
	return svc
}

func randomSecret() string {
	b := make([]byte, 32)
	//nolint
	rand.Read(b)
	return hex.EncodeToString(b)
}
