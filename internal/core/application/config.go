package application

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/senda-network/senda-daemon/internal/core/ports"
	dbbadger "github.com/senda-network/senda-daemon/internal/infrastructure/storage/db/badger"
	"github.com/senda-network/senda-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/senda-network/senda-daemon/internal/metrics"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}
)

type Config struct {
	DBType string
	// DBConfig is the datadir of the badger store.
	DBConfig     interface{}
	TxMaxRetries int
	Network      string

	// Optional collaborators.
	PubSub      ports.PubSub
	EventStream ports.EventStream
	Mirror      ports.Mirror

	MirrorRateLimit  int
	MirrorMaxRetries int

	metrics  *metrics.Metrics
	repo     ports.RepoManager
	pubsub   PubSubService
	mirror   MirrorService
	escrow   EscrowService
	operator OperatorService
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("unsupported db type %q", c.DBType)
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.escrowService(); err != nil {
		return err
	}
	if _, err := c.operatorService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Metrics() *metrics.Metrics {
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	return c.metrics
}

func (c *Config) RepoManager() ports.RepoManager {
	svc, _ := c.repoManager()
	return svc
}

func (c *Config) PubSubService() PubSubService {
	return c.pubsubService()
}

func (c *Config) MirrorService() MirrorService {
	return c.mirrorService()
}

func (c *Config) EscrowService() EscrowService {
	svc, _ := c.escrowService()
	return svc
}

func (c *Config) OperatorService() OperatorService {
	svc, _ := c.operatorService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			datadir, _ := c.DBConfig.(string)
			repoManager, err := dbbadger.NewRepoManager(
				datadir, log.New(), c.TxMaxRetries,
			)
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBInMemory:
			c.repo = inmemory.NewRepoManager()
		default:
			return nil, fmt.Errorf("unsupported db type %q", c.DBType)
		}
	}
	return c.repo, nil
}

func (c *Config) pubsubService() PubSubService {
	if c.pubsub == nil {
		c.pubsub = NewPubSubService(c.PubSub, c.EventStream)
	}
	return c.pubsub
}

func (c *Config) mirrorService() MirrorService {
	if c.mirror == nil {
		c.mirror = NewMirrorService(
			c.Mirror, c.Metrics(), c.MirrorRateLimit, c.MirrorMaxRetries,
		)
	}
	return c.mirror
}

func (c *Config) escrowService() (EscrowService, error) {
	if c.escrow == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		escrow, err := NewEscrowService(
			repo, c.pubsubService(), c.mirrorService(), c.Metrics(), c.Network,
		)
		if err != nil {
			return nil, err
		}
		c.escrow = escrow
	}
	return c.escrow, nil
}

func (c *Config) operatorService() (OperatorService, error) {
	if c.operator == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		operator, err := NewOperatorService(repo, c.pubsubService(), c.Metrics())
		if err != nil {
			return nil, err
		}
		c.operator = operator
	}
	return c.operator, nil
}
