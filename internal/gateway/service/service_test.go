package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bioauth/internal/facetec"
	"bioauth/internal/facetec/facetectest"
	"bioauth/internal/gateway/service"
	"bioauth/internal/platform/metrics"
	"bioauth/internal/sequence"
	"bioauth/internal/signer"
	"bioauth/internal/ticket"
)

type person struct {
	key  *signer.Ed25519Signer
	face string
}

func newPerson(t *testing.T, face string) person {
	t.Helper()
	key, err := signer.NewDerived([]byte("person-"+face), "test")
	require.NoError(t, err)
	return person{key: key, face: face}
}

func (p person) liveness(t *testing.T) ([]byte, []byte) {
	t.Helper()
	data, err := json.Marshal(facetec.FaceScan{FaceScan: p.face, AuditTrailImage: "img"})
	require.NoError(t, err)
	sig, err := p.key.Sign(context.Background(), data)
	require.NoError(t, err)
	return data, sig
}

func (p person) enrollRequest(t *testing.T) service.EnrollRequest {
	data, sig := p.liveness(t)
	return service.EnrollRequest{LivenessData: data, LivenessDataSignature: sig, PublicKey: p.key.PublicKey()}
}

func (p person) authenticateRequest(t *testing.T) service.AuthenticateRequest {
	data, sig := p.liveness(t)
	return service.AuthenticateRequest{LivenessData: data, LivenessDataSignature: sig}
}

type failingSigner struct {
	signer.Signer
}

func (failingSigner) Sign(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("hsm offline")
}

type LogicSuite struct {
	suite.Suite
	server     *facetectest.Server
	vendor     *facetec.Client
	signer     *signer.Ed25519Signer
	checkpoint *sequence.InMemoryCheckpoint
	logic      *service.Logic
}

func TestLogicSuite(t *testing.T) {
	suite.Run(t, new(LogicSuite))
}

func (s *LogicSuite) SetupTest() {
	s.server = facetectest.NewServer("device")
	s.vendor = facetec.New(s.server.URL, "device")
	var err error
	s.signer, err = signer.NewDerived([]byte("gateway"), "ticket")
	s.Require().NoError(err)
	s.checkpoint = sequence.NewInMemoryCheckpoint()
	s.logic = s.newLogic(s.signer, 0)
}

func (s *LogicSuite) TearDownTest() {
	s.server.Close()
}

func (s *LogicSuite) newLogic(sgn signer.Signer, initial uint64) *service.Logic {
	seq, err := sequence.Restore(context.Background(), s.checkpoint, initial)
	s.Require().NoError(err)
	logic, err := service.New(s.vendor, sgn, seq,
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithCheckpoint(s.checkpoint),
		service.WithMetrics(metrics.NewGateway(prometheus.NewRegistry())),
		service.WithDeviceSDKParams(facetec.DeviceSDKParams{DeviceKeyIdentifier: "device"}),
	)
	s.Require().NoError(err)
	return logic
}

func (s *LogicSuite) decode(signed *ticket.SignedTicket) ticket.AuthTicket {
	s.Require().True(signer.Verify(s.signer.PublicKey(), signed.Ticket, signed.Signature))
	t, err := signed.Decode()
	s.Require().NoError(err)
	return t
}

func (s *LogicSuite) TestEnrollThenAuthenticate() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")
	s.Require().NoError(s.logic.Enroll(ctx, alice.enrollRequest(s.T())))

	signed, err := s.logic.Authenticate(ctx, alice.authenticateRequest(s.T()))
	s.Require().NoError(err)
	s.Equal(s.signer.PublicKey(), signed.SignerPublicKey)

	t := s.decode(signed)
	s.Equal(alice.key.PublicKey(), t.PublicKey)
	s.Equal(ticket.Nonce(1), t.Nonce)
}

func (s *LogicSuite) TestDuplicateEnrollment() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")
	s.Require().NoError(s.logic.Enroll(ctx, alice.enrollRequest(s.T())))

	s.Run("same key twice", func() {
		err := s.logic.Enroll(ctx, alice.enrollRequest(s.T()))
		s.ErrorIs(err, service.ErrPublicKeyAlreadyUsed)
	})

	s.Run("same face under another key", func() {
		impostor := newPerson(s.T(), "alice")
		impostor.key, _ = signer.NewDerived([]byte("other"), "test")
		err := s.logic.Enroll(ctx, impostor.enrollRequest(s.T()))
		s.ErrorIs(err, service.ErrPersonAlreadyEnrolled)
	})

	s.Run("first enrollment still authenticates", func() {
		signed, err := s.logic.Authenticate(ctx, alice.authenticateRequest(s.T()))
		s.Require().NoError(err)
		s.Equal(alice.key.PublicKey(), s.decode(signed).PublicKey)
	})
}

func (s *LogicSuite) TestEnrollValidation() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")

	s.Run("liveness signed by another key", func() {
		req := alice.enrollRequest(s.T())
		req.PublicKey = newPerson(s.T(), "bob").key.PublicKey()
		s.ErrorIs(s.logic.Enroll(ctx, req), service.ErrInvalidLivenessSignature)
	})

	s.Run("undecodable liveness data", func() {
		req := alice.enrollRequest(s.T())
		req.LivenessData = []byte("not json")
		s.ErrorIs(s.logic.Enroll(ctx, req), service.ErrInvalidLivenessData)
	})

	s.Run("zero key", func() {
		req := alice.enrollRequest(s.T())
		req.PublicKey = ticket.PublicKey{}
		s.ErrorIs(s.logic.Enroll(ctx, req), ticket.ErrInvalidPublicKey)
	})

	s.Empty(s.server.Calls())
}

func (s *LogicSuite) TestAuthenticateFailures() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")
	s.Require().NoError(s.logic.Enroll(ctx, alice.enrollRequest(s.T())))

	s.Run("unknown face", func() {
		_, err := s.logic.Authenticate(ctx, newPerson(s.T(), "carol").authenticateRequest(s.T()))
		s.ErrorIs(err, service.ErrNoMatchFound)
	})

	s.Run("matched face signed by another key", func() {
		thief := newPerson(s.T(), "alice")
		thief.key, _ = signer.NewDerived([]byte("thief"), "test")
		_, err := s.logic.Authenticate(ctx, thief.authenticateRequest(s.T()))
		s.ErrorIs(err, service.ErrInvalidLivenessSignature)
	})

	s.Run("vendor outage is retryable", func() {
		s.server.FailNext(503)
		_, err := s.logic.Authenticate(ctx, alice.authenticateRequest(s.T()))
		s.Require().Error(err)
		s.True(facetec.IsRetryable(err))
	})
}

func (s *LogicSuite) TestNonceUniqueness() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")
	s.Require().NoError(s.logic.Enroll(ctx, alice.enrollRequest(s.T())))

	var last ticket.Nonce
	for i := 0; i < 20; i++ {
		signed, err := s.logic.Authenticate(ctx, alice.authenticateRequest(s.T()))
		s.Require().NoError(err)
		n := s.decode(signed).Nonce
		s.Greater(n, last)
		last = n
	}
}

func (s *LogicSuite) TestConcurrentCallsAreSerial() {
	ctx := context.Background()
	people := make([]person, 8)
	for i := range people {
		people[i] = newPerson(s.T(), string(rune('a'+i)))
	}
	s.server.OnRequest(func(string) { time.Sleep(2 * time.Millisecond) })

	var wg sync.WaitGroup
	for _, p := range people {
		wg.Add(1)
		go func(p person) {
			defer wg.Done()
			assert.NoError(s.T(), s.logic.Enroll(ctx, p.enrollRequest(s.T())))
		}(p)
	}
	wg.Wait()

	nonces := make(chan ticket.Nonce, len(people)*2)
	for _, p := range people {
		for range 2 {
			wg.Add(1)
			go func(p person) {
				defer wg.Done()
				signed, err := s.logic.Authenticate(ctx, p.authenticateRequest(s.T()))
				if assert.NoError(s.T(), err) {
					t, _ := signed.Decode()
					nonces <- t.Nonce
				}
			}(p)
		}
	}
	wg.Wait()
	close(nonces)

	seen := map[ticket.Nonce]bool{}
	for n := range nonces {
		s.False(seen[n], "nonce %d issued twice", n)
		seen[n] = true
	}
	s.Len(seen, len(people)*2)
	s.Equal(1, s.server.MaxInFlight())
}

func (s *LogicSuite) TestCancelledWhileQueued() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")
	s.Require().NoError(s.logic.Enroll(ctx, alice.enrollRequest(s.T())))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.server.OnRequest(func(string) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})

	first := make(chan error, 1)
	go func() {
		_, err := s.logic.Authenticate(ctx, alice.authenticateRequest(s.T()))
		first <- err
	}()
	<-entered

	queuedCtx, cancel := context.WithCancel(ctx)
	queued := make(chan error, 1)
	go func() {
		_, err := s.logic.Authenticate(queuedCtx, alice.authenticateRequest(s.T()))
		queued <- err
	}()
	cancel()
	s.ErrorIs(<-queued, context.Canceled)

	close(release)
	s.Require().NoError(<-first)

	signed, err := s.logic.Authenticate(ctx, alice.authenticateRequest(s.T()))
	s.Require().NoError(err)
	s.Equal(ticket.Nonce(2), s.decode(signed).Nonce)
}

func (s *LogicSuite) TestOwnerCompletesAfterCallerCancels() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")

	callerCtx, cancel := context.WithCancel(ctx)
	s.server.OnRequest(func(path string) {
		if path == "/3d-db/search" {
			cancel()
		}
	})
	s.Require().NoError(s.logic.Enroll(callerCtx, alice.enrollRequest(s.T())))
	s.True(s.server.Enrolled("humans", "enroll_"+alice.key.PublicKey().String()))
}

func (s *LogicSuite) TestSigningFailureLeavesGap() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")
	s.Require().NoError(s.logic.Enroll(ctx, alice.enrollRequest(s.T())))

	broken := s.newLogic(failingSigner{Signer: s.signer}, 0)
	_, err := broken.Authenticate(ctx, alice.authenticateRequest(s.T()))
	s.Require().ErrorIs(err, service.ErrSigningFailed)

	saved, ok, err := s.checkpoint.Load(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(uint64(1), saved)

	restarted := s.newLogic(s.signer, 0)
	signed, err := restarted.Authenticate(ctx, alice.authenticateRequest(s.T()))
	s.Require().NoError(err)
	s.Equal(ticket.Nonce(2), s.decode(signed).Nonce)
}

func (s *LogicSuite) TestRestartContinuesFromCheckpoint() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")
	s.Require().NoError(s.logic.Enroll(ctx, alice.enrollRequest(s.T())))
	for range 3 {
		_, err := s.logic.Authenticate(ctx, alice.authenticateRequest(s.T()))
		s.Require().NoError(err)
	}

	restarted := s.newLogic(s.signer, 0)
	signed, err := restarted.Authenticate(ctx, alice.authenticateRequest(s.T()))
	s.Require().NoError(err)
	s.Equal(ticket.Nonce(4), s.decode(signed).Nonce)

	s.Run("configured initial above checkpoint wins", func() {
		bumped := s.newLogic(s.signer, 100)
		signed, err := bumped.Authenticate(ctx, alice.authenticateRequest(s.T()))
		s.Require().NoError(err)
		s.Equal(ticket.Nonce(101), s.decode(signed).Nonce)
	})
}

func (s *LogicSuite) TestRestartWithoutCheckpointStillAuthenticates() {
	ctx := context.Background()
	alice := newPerson(s.T(), "alice")
	s.Require().NoError(s.logic.Enroll(ctx, alice.enrollRequest(s.T())))

	first, err := service.New(s.vendor, s.signer, sequence.New(0))
	s.Require().NoError(err)
	_, err = first.Authenticate(ctx, alice.authenticateRequest(s.T()))
	s.Require().NoError(err)

	restarted, err := service.New(s.vendor, s.signer, sequence.New(0))
	s.Require().NoError(err)
	signed, err := restarted.Authenticate(ctx, alice.authenticateRequest(s.T()))
	s.Require().NoError(err)
	s.Equal(alice.key.PublicKey(), s.decode(signed).PublicKey)
}

func (s *LogicSuite) TestSessionTokenAndParams() {
	ctx := context.Background()
	token, err := s.logic.GetSessionToken(ctx)
	s.Require().NoError(err)
	s.NotEmpty(token)

	params, err := s.logic.GetDeviceSDKParams(ctx)
	s.Require().NoError(err)
	s.Equal("device", params.DeviceKeyIdentifier)
}

func TestMetricsRecordOutcomes(t *testing.T) {
	server := facetectest.NewServer("")
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewGateway(reg)
	sgn, err := signer.NewDerived([]byte("gateway"), "ticket")
	require.NoError(t, err)
	logic, err := service.New(facetec.New(server.URL, ""), sgn, sequence.New(0), service.WithMetrics(m))
	require.NoError(t, err)

	ctx := context.Background()
	alice := newPerson(t, "alice")
	require.NoError(t, logic.Enroll(ctx, alice.enrollRequest(t)))
	_, err = logic.Authenticate(ctx, newPerson(t, "bob").authenticateRequest(t))
	require.ErrorIs(t, err, service.ErrNoMatchFound)
	_, err = logic.Authenticate(ctx, alice.authenticateRequest(t))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("enroll", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("authenticate", "no_match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicketsIssued))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CurrentSequence))
}

func TestVendorClientTimeoutBoundsLockedCalls(t *testing.T) {
	server := facetectest.NewServer("")
	defer server.Close()
	entered, release := make(chan struct{}, 1), make(chan struct{})
	defer close(release)
	server.OnRequest(func(string) {
		entered <- struct{}{}
		<-release
	})

	sgn, err := signer.NewDerived([]byte("gateway"), "ticket")
	require.NoError(t, err)
	vendor := facetec.New(server.URL, "", facetec.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	logic, err := service.New(vendor, sgn, sequence.New(0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-entered
		cancel()
	}()
	start := time.Now()
	_, err = logic.GetSessionToken(ctx)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, facetec.IsRetryable(err))
	assert.NotErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestNewRequiresDependencies(t *testing.T) {
	sgn, err := signer.NewDerived([]byte("gateway"), "ticket")
	require.NoError(t, err)
	vendor := facetec.New("http://127.0.0.1:0", "")

	_, err = service.New(nil, sgn, sequence.New(0))
	assert.Error(t, err)
	_, err = service.New(vendor, nil, sequence.New(0))
	assert.Error(t, err)
	_, err = service.New(vendor, sgn, nil)
	assert.Error(t, err)
	_, err = service.New(vendor, sgn, sequence.New(0), service.WithSettings(service.Settings{EnrollRefPrefix: "x", TempRefPrefix: "x"}))
	assert.Error(t, err)
}
