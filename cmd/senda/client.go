package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	requesterHeader = "X-Senda-Requester"
	decimals        = 6
)

type client struct {
	*http.Client
	server    string
	requester string
}

// getClient returns a client of the party interface.
func getClient() (*client, error) {
	return newClientFromState("server")
}

// getOperatorClient returns a client of the operator interface.
func getOperatorClient() (*client, error) {
	return newClientFromState("operator_server")
}

func newClientFromState(serverKey string) (*client, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	server, ok := state[serverKey]
	if !ok || len(server) <= 0 {
		return nil, fmt.Errorf("set %s with `config set %s`", serverKey, serverKey)
	}
	return &client{
		Client:    &http.Client{Timeout: 15 * time.Second},
		server:    strings.TrimSuffix(server, "/"),
		requester: state["key"],
	}, nil
}

type apiError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (c *client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.server+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(c.requester) > 0 {
		req.Header.Set(requesterHeader, c.requester)
	}

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("unable to connect to sendad: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var e apiError
		if err := json.Unmarshal(respBody, &e); err != nil || len(e.Code) <= 0 {
			return fmt.Errorf("%s: %s", resp.Status, string(respBody))
		}
		return fmt.Errorf("%s: %s", e.Code, e.Error)
	}
	if out == nil || len(respBody) <= 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// parseAmount converts a human readable amount into smallest units.
func parseAmount(str string) (uint64, error) {
	amount, err := decimal.NewFromString(str)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", str)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	if amount.Exponent() < -decimals {
		return 0, fmt.Errorf("amount %s has more than %d decimals", str, decimals)
	}
	return uint64(amount.Shift(decimals).IntPart()), nil
}
