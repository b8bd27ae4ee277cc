package operator

import (
	"context"

	"github.com/senda-network/senda-daemon/internal/core/ports"
)

func (s *Service) AddWebhook(
	ctx context.Context, event, endpoint, secret string,
) (string, error) {
	return s.pubsub.AddWebhook(ctx, event, endpoint, secret)
}

func (s *Service) RemoveWebhook(ctx context.Context, id string) error {
	return s.pubsub.RemoveWebhook(ctx, id)
}

func (s *Service) ListWebhooks(
	ctx context.Context, event string,
) ([]ports.Subscription, error) {
	return s.pubsub.ListWebhooks(ctx, event)
}
