// Command node runs a single validator node: the authorization ledger, a
// block driver feeding it, and the JSON-RPC surface that drives enroll and
// authenticate through the gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bioauth/internal/chain"
	gatewayclient "bioauth/internal/gateway/client"
	"bioauth/internal/ledger"
	"bioauth/internal/ledger/events"
	"bioauth/internal/ledger/store"
	"bioauth/internal/node/keystore"
	nodeservice "bioauth/internal/node/service"
	"bioauth/internal/node/rpc"
	"bioauth/internal/platform/config"
	"bioauth/internal/platform/httpserver"
	"bioauth/internal/platform/logger"
	"bioauth/internal/platform/metrics"
	"bioauth/internal/platform/postgres"
	"bioauth/internal/ticket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadNode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "node config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("node stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Node, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewLedger(reg)

	gatewayKey, err := ticket.ParsePublicKey(cfg.Ledger.GatewayPublicKeyHex)
	if err != nil {
		return fmt.Errorf("LEDGER_GATEWAY_PUBLIC_KEY: %w", err)
	}
	prune, err := ledger.ParsePrunePolicy(cfg.Ledger.PrunePolicy, cfg.Ledger.ValidityWindow)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, deliver, closePublisher, err := newPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	clock := chain.NewClock(0)
	l, err := ledger.New(st, clock, ledger.Config{
		GatewayKey:        gatewayKey,
		ValidityWindow:    cfg.Ledger.ValidityWindow,
		MaxAuthorizations: cfg.Ledger.MaxAuthorizations,
		Prune:             prune,
		PruneInterval:     cfg.Ledger.PruneInterval,
	},
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
		ledger.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}
	last, err := l.LastBlock(ctx)
	if err != nil {
		return fmt.Errorf("restoring block height: %w", err)
	}
	clock.Set(last)

	pool := chain.NewPool(cfg.PoolCapacity, l, m)
	driver, err := chain.NewDriver(clock, pool, l, cfg.BlockInterval,
		chain.WithDriverLogger(log),
		chain.WithDriverMetrics(m),
	)
	if err != nil {
		return err
	}

	keys := keystore.NewDir(cfg.KeystoreDir)
	if sgn, err := keys.Extract(ctx); err != nil {
		log.Warn("validator key unavailable; enroll and authenticate will fail until one is provisioned",
			"keystore", cfg.KeystoreDir,
			"error", err,
		)
	} else {
		log.Info("validator key loaded", "public_key", sgn.PublicKey().String())
	}

	svc, err := nodeservice.New(keys, gatewayclient.New(cfg.GatewayURL), pool, l,
		nodeservice.WithLogger(log),
	)
	if err != nil {
		return err
	}
	server := rpc.NewServer(svc, driver, l, cfg.AdminToken, log)
	srv := httpserver.New(cfg.Addr, rpc.NewRouter(server, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	log.Info("starting node", "config", cfg.String(), "block", uint64(last), "prune", prune.String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return driver.Run(ctx)
	})
	g.Go(func() error {
		return deliver(ctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Database, log *slog.Logger) (ledger.Store, func(), error) {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if db == nil {
		log.Warn("no DATABASE_URL configured; ledger state is kept in memory")
		return store.NewInMemory(), func() {}, nil
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.NewPostgres(db), func() { _ = db.Close() }, nil
}

// newPublisher always logs events. With brokers configured it also streams
// them to Kafka through a queue drained by deliver, so block production
// never waits on the broker.
func newPublisher(ctx context.Context, cfg config.Kafka, log *slog.Logger) (events.Publisher, func(context.Context) error, func(), error) {
	logPublisher := events.NewLogPublisher(log)
	if len(cfg.Brokers) == 0 {
		idle := func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}
		return logPublisher, idle, func() {}, nil
	}
	kafka, err := events.NewKafkaPublisher(ctx, cfg.Brokers, cfg.Topic,
		events.WithKafkaLogger(log),
		events.WithProduceTimeout(cfg.ProduceTimeout),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kafka publisher: %w", err)
	}
	async := events.NewAsync(kafka, cfg.BufferSize,
		events.WithDeliveryTimeout(cfg.ProduceTimeout),
		events.WithAsyncLogger(log),
	)
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		kafka.Close(closeCtx)
	}
	return events.Fanout{logPublisher, async}, async.Run, closeFn, nil
}
