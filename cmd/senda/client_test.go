package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		amount      string
		expected    uint64
		expectedErr bool
	}{
		{"1", 1000000, false},
		{"12.5", 12500000, false},
		{"0.000001", 1, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"0.0000001", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.amount, func(t *testing.T) {
			amount, err := parseAmount(tt.amount)
			if tt.expectedErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, amount)
		})
	}
}

func TestClientDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.Header.Get(requesterHeader) != "alice" {
				w.WriteHeader(http.StatusForbidden)
				//nolint
				json.NewEncoder(w).Encode(apiError{
					Code: "NOT_AUTHORIZED", Error: "requester not authorized",
				})
				return
			}
			//nolint
			json.NewEncoder(w).Encode(map[string]string{"id": "lot"})
		},
	))
	t.Cleanup(server.Close)

	c := &client{Client: server.Client(), server: server.URL, requester: "alice"}
	var resp map[string]string
	require.NoError(t, c.do(http.MethodGet, "/v1/lots/lot", nil, &resp))
	require.Equal(t, "lot", resp["id"])

	c.requester = "bob"
	err := c.do(http.MethodGet, "/v1/lots/lot", nil, &resp)
	require.EqualError(t, err, "NOT_AUTHORIZED: requester not authorized")
}
