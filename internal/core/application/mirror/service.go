package mirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/metrics"
	"github.com/senda-network/senda-daemon/pkg/circuitbreaker"
)

const (
	defaultRateLimit  = 100
	defaultMaxRetries = 5
	queueSize         = 1024
	deliveryTimeout   = 10 * time.Second
)

var (
	// RetryInterval is the base delay between two delivery attempts, doubled
	// at every failure.
	RetryInterval = 500 * time.Millisecond
)

type snapshot struct {
	escrow *ports.EscrowSnapshot
	lot    *ports.LotSnapshot
}

func (s snapshot) String() string {
	if s.escrow != nil {
		return fmt.Sprintf("escrow %s", s.escrow.EscrowID)
	}
	return fmt.Sprintf("lot %s v%d", s.lot.LotID, s.lot.Version)
}

// Service delivers committed snapshots to the mirror in background. The
// mirror is a one-way sink: delivery failures and snapshots dropped because
// the queue is full are logged and counted, and never reach the caller of a
// transition.
type Service struct {
	mirror     ports.Mirror
	metrics    *metrics.Metrics
	limiter    ratelimit.Limiter
	cb         *gobreaker.CircuitBreaker
	maxRetries int

	queue chan snapshot
	wg    *sync.WaitGroup
	lock  *sync.RWMutex
	done  bool
}

// NewService returns a dispatcher for the given mirror. A nil mirror returns
// a dispatcher that drops every snapshot.
func NewService(
	mirror ports.Mirror, m *metrics.Metrics, rateLimit, maxRetries int,
) *Service {
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		mirror:     mirror,
		metrics:    m,
		limiter:    ratelimit.New(rateLimit),
		cb:         circuitbreaker.NewCircuitBreaker("mirror"),
		maxRetries: maxRetries,
		queue:      make(chan snapshot, queueSize),
		wg:         &sync.WaitGroup{},
		lock:       &sync.RWMutex{},
	}
}

func (s *Service) IsEnabled() bool {
	return s.mirror != nil
}

func (s *Service) Start() {
	if !s.IsEnabled() {
		return
	}
	s.wg.Add(1)
	go s.loop()
}

// Stop waits for the queued snapshots to be delivered and closes the mirror.
func (s *Service) Stop() {
	if !s.IsEnabled() {
		return
	}

	s.lock.Lock()
	if s.done {
		s.lock.Unlock()
		return
	}
	s.done = true
	close(s.queue)
	s.lock.Unlock()

	s.wg.Wait()
	s.mirror.Close()
}

func (s *Service) NotifyEscrow(escrow *domain.Escrow) {
	snap := ports.NewEscrowSnapshot(escrow)
	s.enqueue(snapshot{escrow: &snap})
}

func (s *Service) NotifyLot(lot *domain.DepositLot) {
	snap := ports.NewLotSnapshot(lot)
	s.enqueue(snapshot{lot: &snap})
}

func (s *Service) enqueue(snap snapshot) {
	if !s.IsEnabled() {
		return
	}

	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.done {
		log.Warnf("mirror dispatcher stopped, dropping %s", snap)
		return
	}

	// Never block the caller. A later snapshot of the same record supersedes
	// the dropped one.
	select {
	case s.queue <- snap:
		s.metrics.MirrorQueue.Inc()
	default:
		s.metrics.MirrorDeliveries.WithLabelValues("dropped").Inc()
		log.Warnf("mirror queue full, dropping %s", snap)
	}
}

func (s *Service) loop() {
	defer s.wg.Done()

	for snap := range s.queue {
		s.metrics.MirrorQueue.Dec()
		s.limiter.Take()

		if err := s.deliver(snap); err != nil {
			s.metrics.MirrorDeliveries.WithLabelValues("failed").Inc()
			log.WithError(err).Errorf(
				"mirror out of sync, failed to deliver %s after %d attempts",
				snap, s.maxRetries,
			)
			continue
		}
		s.metrics.MirrorDeliveries.WithLabelValues("ok").Inc()
	}
}

func (s *Service) deliver(snap snapshot) error {
	var err error
	interval := RetryInterval
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		_, err = s.cb.Execute(func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			defer cancel()

			if snap.escrow != nil {
				return nil, s.mirror.UpsertEscrow(ctx, *snap.escrow)
			}
			return nil, s.mirror.UpsertLot(ctx, *snap.lot)
		})
		if err == nil {
			return nil
		}

		log.WithError(err).Debugf(
			"mirror delivery of %s failed (attempt %d)", snap, attempt,
		)
		if attempt < s.maxRetries {
			time.Sleep(interval)
			interval *= 2
		}
	}
	return err
}
