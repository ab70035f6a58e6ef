package facetec_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bioauth/internal/facetec"
	"bioauth/internal/facetec/facetectest"
	"bioauth/pkg/platform/circuit"
)

const (
	deviceKey = "device-key"
	group     = "humans"
)

type ClientSuite struct {
	suite.Suite
	server   *facetectest.Server
	client   *facetec.Client
	degraded []bool
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.server = facetectest.NewServer(deviceKey)
	s.degraded = nil
	s.client = facetec.New(s.server.URL, deviceKey,
		facetec.WithBreaker(circuit.New("facetec", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))),
		facetec.WithDegradedObserver(func(d bool) { s.degraded = append(s.degraded, d) }),
	)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) enroll(ref, scan string) {
	_, err := s.client.Enrollment3D(context.Background(), facetec.Enrollment3DRequest{
		ExternalDatabaseRefID: ref,
		FaceScan:              facetec.FaceScan{FaceScan: scan},
	})
	s.Require().NoError(err)
	s.Require().NoError(s.client.DBEnroll(context.Background(), facetec.DBEnrollRequest{ExternalDatabaseRefID: ref, GroupName: group}))
}

func (s *ClientSuite) TestSessionToken() {
	token, err := s.client.SessionToken(context.Background())
	s.Require().NoError(err)
	s.Equal("session-1", token)
}

func (s *ClientSuite) TestEnrollmentAndSearch() {
	ctx := context.Background()
	s.enroll("enroll_a", "alice")

	s.Run("matching scan is found", func() {
		_, err := s.client.Enrollment3D(ctx, facetec.Enrollment3DRequest{
			ExternalDatabaseRefID: "tmp_1",
			FaceScan:              facetec.FaceScan{FaceScan: "alice"},
		})
		s.Require().NoError(err)

		res, err := s.client.DBSearch(ctx, facetec.DBSearchRequest{ExternalDatabaseRefID: "tmp_1", GroupName: group, MinMatchLevel: 10})
		s.Require().NoError(err)
		s.Require().Len(res.Results, 1)
		s.Equal("enroll_a", res.Results[0].Identifier)
		s.Equal(facetectest.MatchLevel, res.Results[0].MatchLevel)
	})

	s.Run("threshold above reported level yields nothing", func() {
		res, err := s.client.DBSearch(ctx, facetec.DBSearchRequest{ExternalDatabaseRefID: "tmp_1", GroupName: group, MinMatchLevel: 20})
		s.Require().NoError(err)
		s.Empty(res.Results)
	})

}

func (s *ClientSuite) TestDuplicateReferenceIsTranslated() {
	s.enroll("enroll_a", "alice")

	_, err := s.client.Enrollment3D(context.Background(), facetec.Enrollment3DRequest{
		ExternalDatabaseRefID: "enroll_a",
		FaceScan:              facetec.FaceScan{FaceScan: "alice"},
	})
	s.Require().ErrorIs(err, facetec.ErrExternalRefIDInUse)
	s.False(facetec.IsRetryable(err))
}

func (s *ClientSuite) TestRejectedScan() {
	var logs bytes.Buffer
	client := facetec.New(s.server.URL, deviceKey,
		facetec.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
	)

	res, err := client.Enrollment3D(context.Background(), facetec.Enrollment3DRequest{ExternalDatabaseRefID: "enroll_x"})
	s.Require().ErrorIs(err, facetec.ErrFaceScanRejected)
	s.Require().NotNil(res)
	s.Require().NotNil(res.FaceScanSecurityChecks)
	s.False(res.FaceScanSecurityChecks.FaceScanLivenessCheckSucceeded)

	var entry map[string]any
	s.Require().NoError(json.Unmarshal(logs.Bytes(), &entry))
	s.Equal("face scan rejected", entry["msg"])
	s.Equal("tid-enroll_x", entry["tid"])
	s.Equal(false, entry["liveness"])
	s.Equal(true, entry["replay"])
}

func (s *ClientSuite) TestVendorErrors() {
	ctx := context.Background()

	s.Run("server errors are retryable", func() {
		s.server.FailNext(http.StatusBadGateway)
		_, err := s.client.SessionToken(ctx)
		var ve *facetec.VendorError
		s.Require().ErrorAs(err, &ve)
		s.True(ve.Retryable)
		s.Equal(http.StatusBadGateway, ve.Status)
	})

	s.Run("rate limiting is retryable", func() {
		s.server.FailNext(http.StatusTooManyRequests)
		_, err := s.client.SessionToken(ctx)
		s.True(facetec.IsRetryable(err))
	})

	s.Run("client errors are terminal", func() {
		s.server.FailNext(http.StatusBadRequest)
		_, err := s.client.SessionToken(ctx)
		s.Require().Error(err)
		s.False(facetec.IsRetryable(err))
	})

	s.Run("error envelope is terminal and carries the message", func() {
		_, err := s.client.DBSearch(ctx, facetec.DBSearchRequest{ExternalDatabaseRefID: "missing", GroupName: group})
		var ve *facetec.VendorError
		s.Require().ErrorAs(err, &ve)
		s.False(ve.Retryable)
		s.Contains(ve.Message, "no enrollment")
	})

	s.Run("wrong device key is reported", func() {
		other := facetec.New(s.server.URL, "wrong")
		_, err := other.SessionToken(ctx)
		s.Require().Error(err)
		s.Contains(err.Error(), "X-Device-Key")
	})
}

func (s *ClientSuite) TestBreakerTracksTransientFailures() {
	ctx := context.Background()
	s.server.FailNext(http.StatusServiceUnavailable)
	s.server.FailNext(http.StatusServiceUnavailable)

	_, _ = s.client.SessionToken(ctx)
	s.False(s.client.Degraded())
	_, _ = s.client.SessionToken(ctx)
	s.True(s.client.Degraded())

	_, err := s.client.SessionToken(ctx)
	s.Require().NoError(err)
	s.False(s.client.Degraded())
	s.Equal([]bool{true, false}, s.degraded)
}

func TestTransportFailureIsRetryable(t *testing.T) {
	server := facetectest.NewServer(deviceKey)
	url := server.URL
	server.Close()

	client := facetec.New(url, deviceKey)
	_, err := client.SessionToken(context.Background())
	require.Error(t, err)
	assert.True(t, facetec.IsRetryable(err))
}

func TestTranslateEnrollmentError(t *testing.T) {
	dup := &facetec.VendorError{Op: "enrollment-3d", Message: facetec.DuplicateExternalRefMessage}
	assert.ErrorIs(t, facetec.TranslateEnrollmentError(dup), facetec.ErrExternalRefIDInUse)

	other := &facetec.VendorError{Op: "enrollment-3d", Message: "something else"}
	assert.Same(t, other, facetec.TranslateEnrollmentError(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, facetec.TranslateEnrollmentError(plain))
	assert.Nil(t, facetec.TranslateEnrollmentError(nil))
}
