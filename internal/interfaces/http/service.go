package httpinterface

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/senda-network/senda-daemon/internal/core/application"
	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/interfaces"
	"github.com/senda-network/senda-daemon/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// EventStream streams live events over websocket. An empty recipient
// streams every event.
type EventStream interface {
	ServeStream(w http.ResponseWriter, r *http.Request, recipient string)
}

type ServiceOpts struct {
	// Port serves the party API.
	Port int
	// OperatorPort serves the operator API, the unfiltered event stream and
	// the metrics. It must not be reachable by the parties.
	OperatorPort int

	EscrowSvc   application.EscrowService
	OperatorSvc application.OperatorService
	// EventStream serves the websocket endpoints, disabled if nil.
	EventStream EventStream
	// Metrics is exposed at /metrics of the operator interface if not nil.
	Metrics *metrics.Metrics
}

func (o ServiceOpts) validate() error {
	if o.Port <= 0 {
		return fmt.Errorf("invalid http listening port %d", o.Port)
	}
	if o.OperatorPort <= 0 {
		return fmt.Errorf("invalid operator listening port %d", o.OperatorPort)
	}
	if o.Port == o.OperatorPort {
		return fmt.Errorf("party and operator interfaces must listen on different ports")
	}
	if o.EscrowSvc == nil {
		return fmt.Errorf("escrow app service must not be null")
	}
	if o.OperatorSvc == nil {
		return fmt.Errorf("operator app service must not be null")
	}
	return nil
}

type service struct {
	opts           ServiceOpts
	server         *echo.Echo
	operatorServer *echo.Echo
}

func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}
	return &service{opts: opts}, nil
}

func (s *service) Start() error {
	s.server = start(NewRouter(s.opts), s.opts.Port, "http")
	s.operatorServer = start(
		NewOperatorRouter(s.opts), s.opts.OperatorPort, "operator http",
	)
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for name, server := range map[string]*echo.Echo{
		"http":          s.server,
		"operator http": s.operatorServer,
	} {
		if server == nil {
			continue
		}
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warnf("failed to gracefully stop %s interface", name)
		}
		log.Debugf("disabled %s interface", name)
	}
}

func start(e *echo.Echo, port int, name string) *echo.Echo {
	addr := fmt.Sprintf(":%d", port)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Errorf("%s interface stopped unexpectedly", name)
		}
	}()
	log.Infof("%s interface listening on %s", name, addr)
	return e
}

// NewRouter returns the echo instance serving the party API.
func NewRouter(opts ServiceOpts) *echo.Echo {
	e := newEcho()
	eh := escrowHandler{opts.EscrowSvc}

	v1 := e.Group("/v1")
	v1.POST("/escrows", eh.openEscrow)
	v1.GET("/escrows/:id", eh.getEscrow)
	v1.GET("/escrows/:id/vaults", eh.getVaults)
	v1.POST("/escrows/:id/deposits", eh.deposit)
	v1.GET("/escrows/:id/lots", eh.listLots)
	v1.GET("/parties/:key/escrows", eh.listEscrowsForParty)
	v1.GET("/lots/:id", eh.getLot)
	v1.POST("/lots/:id/release", eh.release)
	v1.POST("/lots/:id/cancel", eh.cancel)
	v1.GET("/accounts/:owner", eh.getBalances)

	if opts.EventStream != nil {
		v1.GET("/events", partyEventStream(opts.EventStream))
	}
	return e
}

// NewOperatorRouter returns the echo instance serving the operator API.
func NewOperatorRouter(opts ServiceOpts) *echo.Echo {
	e := newEcho()
	oh := operatorHandler{opts.OperatorSvc}

	op := e.Group("/v1/operator")
	op.POST("/accounts", oh.fundAccount)
	op.POST("/vaults/:id/reconcile", oh.reconcileVault)
	op.POST("/webhooks", oh.addWebhook)
	op.GET("/webhooks", oh.listWebhooks)
	op.DELETE("/webhooks/:id", oh.removeWebhook)

	if opts.EventStream != nil {
		op.GET("/events", func(c echo.Context) error {
			opts.EventStream.ServeStream(c.Response(), c.Request(), "")
			return nil
		})
	}
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(opts.Metrics.Registry(), promhttp.HandlerOpts{}),
		))
	}
	return e
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger)
	return e
}

// partyEventStream streams only the events the requester is a recipient of.
func partyEventStream(stream EventStream) echo.HandlerFunc {
	return func(c echo.Context) error {
		key, err := requester(c)
		if err != nil {
			return respondError(c, fmt.Errorf("%w: %s", domain.ErrNotAuthorized, err))
		}
		stream.ServeStream(c.Response(), c.Request(), key)
		return nil
	}
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		log.WithFields(log.Fields{
			"method":  c.Request().Method,
			"path":    c.Path(),
			"status":  c.Response().Status,
			"latency": time.Since(start).String(),
		}).Debug("http request")
		return err
	}
}
