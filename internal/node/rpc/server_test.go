package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"bioauth/internal/chain"
	"bioauth/internal/facetec"
	gatewayclient "bioauth/internal/gateway/client"
	"bioauth/internal/ledger"
	"bioauth/internal/ledger/models"
	"bioauth/internal/node/keystore"
	"bioauth/internal/node/rpc"
	"bioauth/internal/node/rpc/mocks"
	"bioauth/internal/node/service"
	"bioauth/internal/ticket"
	"bioauth/pkg/platform/middleware/admin"
)

//go:generate mockgen -source=server.go -destination=mocks/mocks.go -package=mocks Service,Receipts,Deauthenticator

const adminToken = "operator-secret"

type ServerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	svc      *mocks.MockService
	receipts *mocks.MockReceipts
	ledger   *mocks.MockDeauthenticator
	server   *httptest.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.svc = mocks.NewMockService(s.ctrl)
	s.receipts = mocks.NewMockReceipts(s.ctrl)
	s.ledger = mocks.NewMockDeauthenticator(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := rpc.NewServer(s.svc, s.receipts, s.ledger, adminToken, logger)
	s.server = httptest.NewServer(rpc.NewRouter(srv, nil))
}

func (s *ServerSuite) TearDownTest() {
	s.server.Close()
}

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpc.Error      `json:"error"`
}

func (s *ServerSuite) call(body string) (int, rawResponse) {
	resp, err := http.Post(s.server.URL+"/", "application/json", bytes.NewBufferString(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	var out rawResponse
	if resp.StatusCode == http.StatusOK {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (s *ServerSuite) callMethod(method, params string) rawResponse {
	body := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":%q,"params":%s}`, method, params)
	status, resp := s.call(body)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("1", string(resp.ID))
	return resp
}

func (s *ServerSuite) TestEnrollNamedAndPositionalParams() {
	s.svc.EXPECT().Enroll(gomock.Any(), []byte(`{"faceScan":"abc"}`)).Return(nil).Times(2)

	resp := s.callMethod(rpc.MethodEnroll, `{"liveness_data": { "faceScan": "abc" }}`)
	s.Nil(resp.Error)
	s.Equal("true", string(resp.Result))

	resp = s.callMethod(rpc.MethodEnroll, `[{"faceScan":"abc"}]`)
	s.Nil(resp.Error)
}

func (s *ServerSuite) TestAuthenticateResult() {
	var pk ticket.PublicKey
	pk[0] = 7
	s.svc.EXPECT().Authenticate(gomock.Any(), gomock.Any()).
		Return(service.AuthenticateResult{TxHash: "tx-9", PublicKey: pk, Nonce: 12}, nil)

	resp := s.callMethod(rpc.MethodAuthenticate, `[{"faceScan":"abc"}]`)
	s.Require().Nil(resp.Error)
	var res service.AuthenticateResult
	s.Require().NoError(json.Unmarshal(resp.Result, &res))
	s.Equal("tx-9", res.TxHash)
	s.Equal(pk, res.PublicKey)
	s.Equal(ticket.Nonce(12), res.Nonce)
}

func (s *ServerSuite) TestErrorCodes() {
	retryable := &gatewayclient.Error{Code: gatewayclient.CodeUnreachable, ShouldRetry: true}
	terminal := &gatewayclient.Error{Status: 404, Code: "AUTHENTICATE_PERSON_NOT_FOUND"}

	tests := []struct {
		name        string
		err         error
		code        int
		shouldRetry bool
		gatewayCode string
	}{
		{name: "missing key", err: keystore.ErrKeyNotFound, code: rpc.CodeKeyNotFound},
		{name: "extraction", err: fmt.Errorf("%w: %w", service.ErrKeyExtraction, errors.New("eacces")), code: rpc.CodeKeyExtraction},
		{name: "signing", err: fmt.Errorf("%w: hsm", service.ErrSigning), code: rpc.CodeSigner},
		{name: "gateway retryable", err: fmt.Errorf("%w: %w", service.ErrGateway, retryable), code: rpc.CodeGateway, shouldRetry: true, gatewayCode: gatewayclient.CodeUnreachable},
		{name: "gateway terminal", err: fmt.Errorf("%w: %w", service.ErrGateway, terminal), code: rpc.CodeGateway, gatewayCode: "AUTHENTICATE_PERSON_NOT_FOUND"},
		{name: "invalid transaction", err: fmt.Errorf("%w: %w", service.ErrTransaction, fmt.Errorf("%w: %w", chain.ErrInvalidTransaction, ledger.ErrNonceAlreadyConsumed)), code: rpc.CodeInvalidTransaction},
		{name: "pool full", err: fmt.Errorf("%w: %w", service.ErrTransaction, chain.ErrPoolFull), code: rpc.CodePoolFull},
		{name: "already pooled", err: fmt.Errorf("%w: %w", service.ErrTransaction, chain.ErrAlreadyInPool), code: rpc.CodeAlreadyInPool},
		{name: "unknown", err: errors.New("boom"), code: rpc.CodeInternalError},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.svc.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(service.AuthenticateResult{}, tt.err)
			resp := s.callMethod(rpc.MethodAuthenticate, `[{"faceScan":"abc"}]`)
			s.Require().NotNil(resp.Error)
			s.Equal(tt.code, resp.Error.Code)
			if tt.gatewayCode == "" {
				s.Nil(resp.Error.Data)
				return
			}
			s.Require().NotNil(resp.Error.Data)
			s.Equal(tt.shouldRetry, resp.Error.Data.ShouldRetry)
			s.Equal(tt.gatewayCode, resp.Error.Data.GatewayCode)
		})
	}
}

func (s *ServerSuite) TestStatusQueryError() {
	s.svc.EXPECT().Status(gomock.Any()).Return(models.Status{}, fmt.Errorf("%w: db", service.ErrStatusQuery))
	resp := s.callMethod(rpc.MethodStatus, `[]`)
	s.Require().NotNil(resp.Error)
	s.Equal(rpc.CodeRuntimeQuery, resp.Error.Code)
}

func (s *ServerSuite) TestStatus() {
	var pk ticket.PublicKey
	pk[1] = 3
	s.svc.EXPECT().Status(gomock.Any()).Return(models.Status{PublicKey: pk, Authorized: true, ExpiresAt: 30, Block: 10}, nil)

	resp := s.callMethod(rpc.MethodStatus, `[]`)
	s.Require().Nil(resp.Error)
	var st rpc.StatusResult
	s.Require().NoError(json.Unmarshal(resp.Result, &st))
	s.True(st.Authorized)
	s.Equal(models.BlockNumber(30), st.ExpiresAt)
	s.Equal(pk, st.PublicKey)
}

func (s *ServerSuite) TestVendorPassThrough() {
	s.svc.EXPECT().SessionToken(gomock.Any()).Return("session-1", nil)
	resp := s.callMethod(rpc.MethodSessionToken, `[]`)
	s.Equal(`"session-1"`, string(resp.Result))

	s.svc.EXPECT().DeviceSDKParams(gomock.Any()).Return(facetec.DeviceSDKParams{DeviceKeyIdentifier: "dk"}, nil)
	resp = s.callMethod(rpc.MethodDeviceSDKParams, `[]`)
	var params facetec.DeviceSDKParams
	s.Require().NoError(json.Unmarshal(resp.Result, &params))
	s.Equal("dk", params.DeviceKeyIdentifier)
}

func (s *ServerSuite) TestTransactionReceipt() {
	s.receipts.EXPECT().Receipt("tx-1").Return(chain.Receipt{Hash: "tx-1", Block: 4}, true)
	resp := s.callMethod(rpc.MethodTransactionReceipt, `{"tx_hash":"tx-1"}`)
	var res rpc.ReceiptResult
	s.Require().NoError(json.Unmarshal(resp.Result, &res))
	s.True(res.Included)
	s.Equal(models.BlockNumber(4), res.Block)

	s.receipts.EXPECT().Receipt("tx-2").Return(chain.Receipt{}, false)
	resp = s.callMethod(rpc.MethodTransactionReceipt, `["tx-2"]`)
	s.Require().NoError(json.Unmarshal(resp.Result, &res))
	s.False(res.Included)
}

func (s *ServerSuite) TestProtocolErrors() {
	status, resp := s.call(`{not json`)
	s.Equal(http.StatusOK, status)
	s.Equal(rpc.CodeParseError, resp.Error.Code)

	_, resp = s.call(`{"jsonrpc":"1.0","id":1,"method":"bioauth_status"}`)
	s.Equal(rpc.CodeInvalidRequest, resp.Error.Code)

	resp = s.callMethod("bioauth_unknown", `[]`)
	s.Equal(rpc.CodeMethodNotFound, resp.Error.Code)

	resp = s.callMethod(rpc.MethodEnroll, `["not an object"]`)
	s.Equal(rpc.CodeInvalidParams, resp.Error.Code)

	resp = s.callMethod(rpc.MethodEnroll, `[{}, {}]`)
	s.Equal(rpc.CodeInvalidParams, resp.Error.Code)

	resp = s.callMethod(rpc.MethodTransactionReceipt, `{}`)
	s.Equal(rpc.CodeInvalidParams, resp.Error.Code)
}

func (s *ServerSuite) TestNotificationHasNoBody() {
	s.svc.EXPECT().SessionToken(gomock.Any()).Return("t", nil)
	status, _ := s.call(`{"jsonrpc":"2.0","method":"bioauth_getFacetecSessionToken"}`)
	s.Equal(http.StatusNoContent, status)
}

func (s *ServerSuite) deauthenticate(token, body string) *http.Response {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.server.URL+"/admin/deauthenticate", bytes.NewBufferString(body))
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set(admin.HeaderAdminToken, token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *ServerSuite) TestDeauthenticate() {
	var pk ticket.PublicKey
	pk[0] = 9
	body := fmt.Sprintf(`{"public_key":%q,"reason":{"kind":"offence","detail":"equivocation"}}`, pk.String())

	resp := s.deauthenticate("", body)
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)

	s.ledger.EXPECT().Deauthenticate(gomock.Any(), pk, models.DeauthenticationReason{Kind: models.ReasonOffence, Detail: "equivocation"}).Return(nil)
	resp = s.deauthenticate(adminToken, body)
	resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	s.ledger.EXPECT().Deauthenticate(gomock.Any(), pk, gomock.Any()).Return(ledger.ErrNotAuthorized)
	resp = s.deauthenticate(adminToken, body)
	resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp = s.deauthenticate(adminToken, fmt.Sprintf(`{"public_key":%q,"reason":{"kind":"boredom"}}`, pk.String()))
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
