// Package service serializes biometric operations against the vendor and
// issues signed authentication tickets.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"bioauth/internal/facetec"
	"bioauth/internal/platform/metrics"
	"bioauth/internal/sequence"
	"bioauth/internal/signer"
)

// Vendor is the subset of the FaceTec client used by the gateway.
type Vendor interface {
	SessionToken(ctx context.Context) (string, error)
	Enrollment3D(ctx context.Context, req facetec.Enrollment3DRequest) (*facetec.Enrollment3DResponse, error)
	DBSearch(ctx context.Context, req facetec.DBSearchRequest) (*facetec.DBSearchResponse, error)
	DBEnroll(ctx context.Context, req facetec.DBEnrollRequest) error
}

// locked is only touched while holding Logic.sem.
type locked struct {
	sequence   *sequence.Sequence
	vendor     Vendor
	signer     signer.Signer
	checkpoint sequence.CheckpointStore
}

// Logic owns the sequence, vendor client and signer behind one exclusive lock.
// Every operation takes the lock, so at most one vendor round trip is in flight.
type Logic struct {
	sem       *semaphore.Weighted
	state     locked
	settings  Settings
	sdkParams facetec.DeviceSDKParams
	logger    *slog.Logger
	metrics   *metrics.Gateway
	tracer    trace.Tracer
}

type Option func(*Logic)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Logic) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Gateway) Option {
	return func(l *Logic) {
		l.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(l *Logic) {
		l.tracer = tracer
	}
}

// WithCheckpoint persists the sequence after every increment.
func WithCheckpoint(store sequence.CheckpointStore) Option {
	return func(l *Logic) {
		l.state.checkpoint = store
	}
}

func WithSettings(settings Settings) Option {
	return func(l *Logic) {
		l.settings = settings
	}
}

func WithDeviceSDKParams(params facetec.DeviceSDKParams) Option {
	return func(l *Logic) {
		l.sdkParams = params
	}
}

func New(vendor Vendor, sgn signer.Signer, seq *sequence.Sequence, opts ...Option) (*Logic, error) {
	if vendor == nil {
		return nil, errors.New("vendor client is required")
	}
	if sgn == nil {
		return nil, errors.New("signer is required")
	}
	if seq == nil {
		return nil, errors.New("sequence is required")
	}

	l := &Logic{
		sem: semaphore.NewWeighted(1),
		state: locked{
			sequence: seq,
			vendor:   vendor,
			signer:   sgn,
		},
		settings: DefaultSettings(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("bioauth/gateway"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.settings.EnrollRefPrefix == "" || l.settings.EnrollRefPrefix == l.settings.TempRefPrefix {
		return nil, errors.New("enroll reference prefix must be set and differ from the temporary prefix")
	}
	return l, nil
}

// SignerPublicKey returns the key tickets are signed with.
func (l *Logic) SignerPublicKey() string {
	return l.state.signer.PublicKey().String()
}

// withLock waits for the lock while ctx allows, then runs fn to completion
// regardless of later cancellation.
func (l *Logic) withLock(ctx context.Context, op string, fn func(ctx context.Context, st *locked) error) error {
	ctx, span := l.tracer.Start(ctx, "gateway."+op)
	defer span.End()

	queued := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		span.SetStatus(codes.Error, "cancelled while queued")
		l.metrics.ObserveOperation(op, "cancelled", queued)
		return fmt.Errorf("waiting for vendor lock: %w", err)
	}
	defer l.sem.Release(1)
	l.metrics.ObserveLockWait(time.Since(queued))

	started := time.Now()
	err := fn(context.WithoutCancel(ctx), &l.state)
	outcome := outcomeOf(err)
	l.metrics.ObserveOperation(op, outcome, started)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrPublicKeyAlreadyUsed), errors.Is(err, ErrPersonAlreadyEnrolled):
		return "duplicate"
	case errors.Is(err, ErrNoMatchFound):
		return "no_match"
	case errors.Is(err, ErrFaceScanRejected):
		return "rejected"
	case errors.Is(err, ErrSigningFailed):
		return "signing_failed"
	case facetec.IsRetryable(err):
		return "vendor_unavailable"
	default:
		return "error"
	}
}

// GetSessionToken fetches a session token for the device SDK.
func (l *Logic) GetSessionToken(ctx context.Context) (string, error) {
	var token string
	err := l.withLock(ctx, "session_token", func(ctx context.Context, st *locked) error {
		t, err := st.vendor.SessionToken(ctx)
		if err != nil {
			return fmt.Errorf("requesting session token: %w", err)
		}
		token = t
		return nil
	})
	return token, err
}

// GetDeviceSDKParams returns the static device SDK configuration.
func (l *Logic) GetDeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error) {
	var params facetec.DeviceSDKParams
	err := l.withLock(ctx, "device_sdk_params", func(context.Context, *locked) error {
		params = l.sdkParams
		return nil
	})
	return params, err
}
