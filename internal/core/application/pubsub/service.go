package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
)

const (
	EventDepositCreated    = "DEPOSIT_CREATED"
	EventSignatureRecorded = "SIGNATURE_RECORDED"
	EventLotReleased       = "LOT_RELEASED"
	EventLotCancelled      = "LOT_CANCELLED"
	EventVaultHalted       = "VAULT_HALTED"
)

var topics = map[string]struct{}{
	EventDepositCreated:    {},
	EventSignatureRecorded: {},
	EventLotReleased:       {},
	EventLotCancelled:      {},
	EventVaultHalted:       {},
	ports.AnyTopic:         {},
}

// IsValidTopic returns whether topic is an event or ports.AnyTopic.
func IsValidTopic(topic string) bool {
	_, ok := topics[topic]
	return ok
}

// Service turns committed transitions into event messages and hands them to
// the webhook pubsub and to the live event stream. Both are optional.
type Service struct {
	pubsub ports.PubSub
	stream ports.EventStream
}

func NewService(pubsub ports.PubSub, stream ports.EventStream) *Service {
	return &Service{pubsub, stream}
}

func (s *Service) PubSub() ports.PubSub {
	return s.pubsub
}

func (s *Service) AddWebhook(
	_ context.Context, event, endpoint, secret string,
) (string, error) {
	if s.pubsub == nil {
		return "", ErrPubSubDisabled
	}
	if !IsValidTopic(event) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEvent, event)
	}
	return s.pubsub.Subscribe(event, endpoint, secret)
}

func (s *Service) RemoveWebhook(_ context.Context, id string) error {
	if s.pubsub == nil {
		return ErrPubSubDisabled
	}
	return s.pubsub.Unsubscribe(id)
}

func (s *Service) ListWebhooks(
	_ context.Context, event string,
) ([]ports.Subscription, error) {
	if s.pubsub == nil {
		return nil, ErrPubSubDisabled
	}
	if event != ports.UnspecifiedTopic && !IsValidTopic(event) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEvent, event)
	}
	return s.pubsub.ListSubscriptionsForTopic(event), nil
}

func (s *Service) PublishDepositCreated(
	escrow *domain.Escrow, lot *domain.DepositLot,
) error {
	payload := map[string]interface{}{
		"escrow": getEscrowPayload(escrow),
		"lot":    getLotPayload(lot),
	}
	return s.publish(EventDepositCreated, []string{lot.Counterparty}, payload)
}

func (s *Service) PublishSignatureRecorded(
	lot *domain.DepositLot, missingRoles []domain.Role,
) error {
	missing := make([]string, 0, len(missingRoles))
	for _, r := range missingRoles {
		missing = append(missing, r.String())
	}
	payload := map[string]interface{}{
		"lot":           getLotPayload(lot),
		"missing_roles": missing,
	}
	recipients := []string{lot.Depositor, lot.Counterparty}
	return s.publish(EventSignatureRecorded, recipients, payload)
}

func (s *Service) PublishLotReleased(
	lot *domain.DepositLot, destination string,
) error {
	payload := map[string]interface{}{
		"lot":         getLotPayload(lot),
		"destination": destination,
	}
	return s.publish(EventLotReleased, []string{destination}, payload)
}

func (s *Service) PublishLotCancelled(lot *domain.DepositLot) error {
	payload := map[string]interface{}{
		"lot": getLotPayload(lot),
	}
	recipients := []string{lot.Depositor, lot.Counterparty}
	return s.publish(EventLotCancelled, recipients, payload)
}

func (s *Service) PublishVaultHalted(
	vault *domain.Vault, lotID string,
) error {
	payload := map[string]interface{}{
		"vault": map[string]interface{}{
			"id":        vault.ID,
			"escrow_id": vault.EscrowID,
			"asset":     vault.Asset.String(),
			"balance":   formatAmount(vault.Balance),
			"reason":    vault.HaltReason,
		},
		"lot_id": lotID,
	}
	return s.publish(EventVaultHalted, nil, payload)
}

func (s *Service) Close() {
	if s.pubsub != nil {
		s.pubsub.Close()
	}
}

func (s *Service) publish(
	event string, recipients []string, body map[string]interface{},
) error {
	now := time.Now()
	body["id"] = uuid.New().String()
	body["event"] = event
	body["recipients"] = recipients
	body["timestamp"] = now.Unix()
	body["date"] = now.Format(time.RFC3339)

	message, err := json.Marshal(body)
	if err != nil {
		return err
	}

	if s.stream != nil {
		s.stream.Broadcast(event, recipients, message)
	}
	if s.pubsub == nil {
		return nil
	}
	return s.pubsub.Publish(event, string(message))
}
