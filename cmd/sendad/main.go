package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/senda-network/senda-daemon/internal/config"
	"github.com/senda-network/senda-daemon/internal/core/application"
	"github.com/senda-network/senda-daemon/internal/core/ports"
	"github.com/senda-network/senda-daemon/internal/infrastructure/eventstream"
	inmemorymirror "github.com/senda-network/senda-daemon/internal/infrastructure/mirror/inmemory"
	pgmirror "github.com/senda-network/senda-daemon/internal/infrastructure/mirror/pg"
	"github.com/senda-network/senda-daemon/internal/infrastructure/pubsub"
	"github.com/senda-network/senda-daemon/internal/interfaces"
	grpcinterface "github.com/senda-network/senda-daemon/internal/interfaces/grpc"
	httpinterface "github.com/senda-network/senda-daemon/internal/interfaces/http"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
	if config.GetString(config.LogFormatKey) == config.LogFormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}

	appConfig := &application.Config{
		DBType:           config.GetString(config.DBTypeKey),
		DBConfig:         config.GetDbDatadir(),
		TxMaxRetries:     config.GetInt(config.TxMaxRetriesKey),
		Network:          config.GetString(config.NetworkKey),
		MirrorRateLimit:  config.GetInt(config.MirrorRateLimitKey),
		MirrorMaxRetries: config.GetInt(config.MirrorMaxRetriesKey),
	}
	hub := eventstream.NewHub(appConfig.Metrics())
	appConfig.EventStream = hub

	if !config.GetBool(config.NoWebhooksKey) {
		pubsubSvc, err := pubsub.NewService(
			config.GetWebhookDatadir(), log.StandardLogger(),
			config.GetDuration(config.WebhookTimeoutKey),
		)
		if err != nil {
			log.WithError(err).Fatal("failed to init webhook service")
		}
		appConfig.PubSub = pubsubSvc
	}

	mirror, err := newMirror(config.GetString(config.MirrorTypeKey))
	if err != nil {
		log.WithError(err).Fatal("failed to init mirror")
	}
	appConfig.Mirror = mirror

	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid app config")
	}

	mirrorSvc := appConfig.MirrorService()
	mirrorSvc.Start()

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Port:         config.GetInt(config.HTTPListeningPortKey),
		OperatorPort: config.GetInt(config.OperatorListeningPortKey),
		EscrowSvc:    appConfig.EscrowService(),
		OperatorSvc:  appConfig.OperatorService(),
		EventStream:  hub,
		Metrics:      appConfig.Metrics(),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init http interface")
	}
	grpcSvc, err := grpcinterface.NewService(grpcinterface.ServiceOpts{
		Port: config.GetInt(config.GRPCListeningPortKey),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init grpc interface")
	}

	svcs := []interfaces.Service{httpSvc, grpcSvc}
	eg, _ := errgroup.WithContext(context.Background())
	for _, svc := range svcs {
		svc := svc
		eg.Go(svc.Start)
	}
	if err := eg.Wait(); err != nil {
		log.WithError(err).Fatal("failed to start daemon")
	}

	log.Infof("senda daemon started on %s", config.GetString(config.NetworkKey))

	defer func() {
		for _, svc := range svcs {
			svc.Stop()
		}
		hub.Close()
		mirrorSvc.Stop()
		appConfig.PubSubService().Close()
		appConfig.RepoManager().Close()
		log.Info("shutdown")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)
	<-sigChan

	log.Info("shutting down daemon")
}

func newMirror(mirrorType string) (ports.Mirror, error) {
	switch mirrorType {
	case config.MirrorInMemory:
		return inmemorymirror.NewMirror(), nil
	case config.MirrorPostgres:
		return pgmirror.NewMirror(
			context.Background(), config.GetString(config.PgConnectAddrKey),
		)
	default:
		return nil, nil
	}
}
