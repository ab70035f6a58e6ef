// Command gateway runs the biometric gateway: it serializes enroll and
// authenticate calls against the FaceTec server and issues signed tickets.
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

	"bioauth/internal/facetec"
	"bioauth/internal/gateway/handler"
	"bioauth/internal/gateway/service"
	"bioauth/internal/platform/config"
	"bioauth/internal/platform/httpserver"
	"bioauth/internal/platform/logger"
	"bioauth/internal/platform/metrics"
	"bioauth/internal/platform/redis"
	"bioauth/internal/sequence"
	"bioauth/internal/signer"
	"bioauth/pkg/platform/circuit"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Gateway, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewGateway(reg)

	sgn, err := newSigner(cfg.Signer)
	if err != nil {
		return err
	}

	var checkpoint sequence.CheckpointStore
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		checkpoint = sequence.NewRedisCheckpoint(rdb.Client)
		log.Info("sequence checkpoint enabled", "backend", "redis")
	} else {
		log.Warn("no sequence checkpoint configured; nonces restart from the initial value on restart")
	}
	seq, err := sequence.Restore(ctx, checkpoint, cfg.InitialSequence)
	if err != nil {
		return fmt.Errorf("restoring sequence: %w", err)
	}

	vendor := facetec.New(cfg.Vendor.ServerURL, cfg.Vendor.DeviceKeyIdentifier,
		facetec.WithHTTPClient(&http.Client{Timeout: cfg.Vendor.RequestTimeout}),
		facetec.WithLogger(log),
		facetec.WithBreaker(circuit.New("facetec", circuit.WithFailureThreshold(cfg.Vendor.BreakerFailureThreshold))),
		facetec.WithDegradedObserver(m.SetVendorDegraded),
	)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithSettings(service.Settings{
			GroupName:       cfg.Vendor.GroupName,
			EnrollRefPrefix: cfg.Vendor.EnrollRefPrefix,
			TempRefPrefix:   cfg.Vendor.TempRefPrefix,
			MatchLevel:      cfg.Vendor.MatchLevel,
		}),
		service.WithDeviceSDKParams(facetec.DeviceSDKParams{
			DeviceKeyIdentifier:        cfg.Vendor.DeviceKeyIdentifier,
			PublicFaceMapEncryptionKey: cfg.Vendor.PublicFaceMapEncryptionKey,
			ProductionKey:              cfg.Vendor.ProductionKey,
		}),
	}
	if checkpoint != nil {
		opts = append(opts, service.WithCheckpoint(checkpoint))
	}
	logic, err := service.New(vendor, sgn, seq, opts...)
	if err != nil {
		return err
	}

	h := handler.New(logic, log, vendor)
	router := handler.NewRouter(h, log, cfg.RequestTimeout, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting gateway",
		"addr", cfg.Addr,
		"signer_public_key", sgn.PublicKey().String(),
		"sequence", seq.Current(),
	)
	return serve(ctx, srv, log)
}

func newSigner(cfg config.Signer) (*signer.Ed25519Signer, error) {
	if cfg.SeedHex != "" {
		return signer.NewEd25519FromHex(cfg.SeedHex)
	}
	return signer.NewDerived([]byte(cfg.MasterSecret), cfg.KeyInfo)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
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
