// Package service drives enroll and authenticate from a validator node: it
// signs liveness data with the local key, calls the gateway and submits the
// resulting ticket to the transaction pool.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bioauth/internal/chain"
	"bioauth/internal/facetec"
	gatewaymodels "bioauth/internal/gateway/models"
	ledgermodels "bioauth/internal/ledger/models"
	"bioauth/internal/node/keystore"
	"bioauth/internal/signer"
	"bioauth/internal/ticket"
)

// Gateway is the gateway SDK surface the node uses.
type Gateway interface {
	SessionToken(ctx context.Context) (string, error)
	DeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error)
	Enroll(ctx context.Context, req gatewaymodels.EnrollRequest) error
	Authenticate(ctx context.Context, req gatewaymodels.AuthenticateRequest) (*ticket.SignedTicket, error)
}

// Submitter queues ledger transactions.
type Submitter interface {
	Submit(ctx context.Context, ticket, signature []byte) (chain.Transaction, error)
}

// StatusReader answers ledger queries.
type StatusReader interface {
	Status(ctx context.Context, pk ticket.PublicKey) (ledgermodels.Status, error)
}

// AuthenticateResult is returned once the ticket is in the pool.
type AuthenticateResult struct {
	TxHash    string           `json:"tx_hash"`
	PublicKey ticket.PublicKey `json:"public_key"`
	Nonce     ticket.Nonce     `json:"nonce"`
}

type Service struct {
	keys    keystore.Extractor
	gateway Gateway
	pool    Submitter
	ledger  StatusReader
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(keys keystore.Extractor, gateway Gateway, pool Submitter, ledger StatusReader, opts ...Option) (*Service, error) {
	if keys == nil {
		return nil, errors.New("key extractor is required")
	}
	if gateway == nil {
		return nil, errors.New("gateway client is required")
	}
	if pool == nil {
		return nil, errors.New("transaction pool is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	s := &Service{
		keys:    keys,
		gateway: gateway,
		pool:    pool,
		ledger:  ledger,
		logger:  slog.Default(),
		tracer:  otel.Tracer("bioauth/node"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) extract(ctx context.Context) (signer.Signer, error) {
	sgn, err := s.keys.Extract(ctx)
	if errors.Is(err, keystore.ErrKeyNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyExtraction, err)
	}
	return sgn, nil
}

// signLiveness extracts the key and signs the liveness payload with it.
func (s *Service) signLiveness(ctx context.Context, liveness []byte) (ticket.PublicKey, []byte, error) {
	sgn, err := s.extract(ctx)
	if err != nil {
		return ticket.PublicKey{}, nil, err
	}
	sig, err := sgn.Sign(ctx, liveness)
	if err != nil {
		return ticket.PublicKey{}, nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return sgn.PublicKey(), sig, nil
}

// Enroll registers the node key with the face in liveness.
func (s *Service) Enroll(ctx context.Context, liveness []byte) (err error) {
	ctx, span := s.tracer.Start(ctx, "node.enroll")
	defer func() { endSpan(span, err) }()

	pk, sig, err := s.signLiveness(ctx, liveness)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("public_key", pk.String()))

	err = s.gateway.Enroll(ctx, gatewaymodels.EnrollRequest{
		LivenessData:          liveness,
		LivenessDataSignature: sig,
		PublicKey:             pk,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGateway, err)
	}
	s.logger.InfoContext(ctx, "enrolled", "public_key", pk.String())
	return nil
}

// Authenticate obtains a ticket for the face in liveness and submits it.
func (s *Service) Authenticate(ctx context.Context, liveness []byte) (res AuthenticateResult, err error) {
	ctx, span := s.tracer.Start(ctx, "node.authenticate")
	defer func() { endSpan(span, err) }()

	pk, sig, err := s.signLiveness(ctx, liveness)
	if err != nil {
		return res, err
	}

	signed, err := s.gateway.Authenticate(ctx, gatewaymodels.AuthenticateRequest{
		LivenessData:          liveness,
		LivenessDataSignature: sig,
	})
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	t, err := signed.Decode()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if t.PublicKey != pk {
		// The face matched a different enrollment.
		s.logger.WarnContext(ctx, "gateway ticket is for a different key",
			"public_key", pk.String(),
			"ticket_public_key", t.PublicKey.String(),
		)
	}

	tx, err := s.pool.Submit(ctx, signed.Ticket, signed.Signature)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrTransaction, err)
	}
	span.SetAttributes(
		attribute.String("tx_hash", tx.Hash),
		attribute.Int64("nonce", int64(t.Nonce)),
	)
	s.logger.InfoContext(ctx, "authentication submitted",
		"tx_hash", tx.Hash,
		"public_key", t.PublicKey.String(),
		"nonce", uint64(t.Nonce),
	)
	return AuthenticateResult{TxHash: tx.Hash, PublicKey: t.PublicKey, Nonce: t.Nonce}, nil
}

// Status reports the ledger authorization of the node key.
func (s *Service) Status(ctx context.Context) (ledgermodels.Status, error) {
	sgn, err := s.extract(ctx)
	if err != nil {
		return ledgermodels.Status{}, err
	}
	st, err := s.ledger.Status(ctx, sgn.PublicKey())
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrStatusQuery, err)
	}
	return st, nil
}

func (s *Service) DeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error) {
	params, err := s.gateway.DeviceSDKParams(ctx)
	if err != nil {
		return params, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return params, nil
}

func (s *Service) SessionToken(ctx context.Context) (string, error) {
	token, err := s.gateway.SessionToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return token, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
