// Package mocks holds gomock doubles for Gateway, Submitter and StatusReader.
// They follow mockgen's source mode layout; go generate in the parent package
// replaces them with mockgen output.
package mocks

import (
	context "context"
	reflect "reflect"

	chain "bioauth/internal/chain"
	facetec "bioauth/internal/facetec"
	models "bioauth/internal/gateway/models"
	models0 "bioauth/internal/ledger/models"
	ticket "bioauth/internal/ticket"
	gomock "go.uber.org/mock/gomock"
)

// MockGateway is a mock of Gateway interface.
type MockGateway struct {
	ctrl     *gomock.Controller
	recorder *MockGatewayMockRecorder
	isgomock struct{}
}

// MockGatewayMockRecorder is the mock recorder for MockGateway.
type MockGatewayMockRecorder struct {
	mock *MockGateway
}

// NewMockGateway creates a new mock instance.
func NewMockGateway(ctrl *gomock.Controller) *MockGateway {
	mock := &MockGateway{ctrl: ctrl}
	mock.recorder = &MockGatewayMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockGateway) EXPECT() *MockGatewayMockRecorder {
	return m.recorder
}

// Authenticate mocks base method.
func (m *MockGateway) Authenticate(ctx context.Context, req models.AuthenticateRequest) (*ticket.SignedTicket, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Authenticate", ctx, req)
	ret0, _ := ret[0].(*ticket.SignedTicket)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Authenticate indicates an expected call of Authenticate.
func (mr *MockGatewayMockRecorder) Authenticate(ctx, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Authenticate", reflect.TypeOf((*MockGateway)(nil).Authenticate), ctx, req)
}

// DeviceSDKParams mocks base method.
func (m *MockGateway) DeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeviceSDKParams", ctx)
	ret0, _ := ret[0].(facetec.DeviceSDKParams)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// DeviceSDKParams indicates an expected call of DeviceSDKParams.
func (mr *MockGatewayMockRecorder) DeviceSDKParams(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeviceSDKParams", reflect.TypeOf((*MockGateway)(nil).DeviceSDKParams), ctx)
}

// Enroll mocks base method.
func (m *MockGateway) Enroll(ctx context.Context, req models.EnrollRequest) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Enroll", ctx, req)
	ret0, _ := ret[0].(error)
	return ret0
}

// Enroll indicates an expected call of Enroll.
func (mr *MockGatewayMockRecorder) Enroll(ctx, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Enroll", reflect.TypeOf((*MockGateway)(nil).Enroll), ctx, req)
}

// SessionToken mocks base method.
func (m *MockGateway) SessionToken(ctx context.Context) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SessionToken", ctx)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// SessionToken indicates an expected call of SessionToken.
func (mr *MockGatewayMockRecorder) SessionToken(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SessionToken", reflect.TypeOf((*MockGateway)(nil).SessionToken), ctx)
}

// MockSubmitter is a mock of Submitter interface.
type MockSubmitter struct {
	ctrl     *gomock.Controller
	recorder *MockSubmitterMockRecorder
	isgomock struct{}
}

// MockSubmitterMockRecorder is the mock recorder for MockSubmitter.
type MockSubmitterMockRecorder struct {
	mock *MockSubmitter
}

// NewMockSubmitter creates a new mock instance.
func NewMockSubmitter(ctrl *gomock.Controller) *MockSubmitter {
	mock := &MockSubmitter{ctrl: ctrl}
	mock.recorder = &MockSubmitterMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSubmitter) EXPECT() *MockSubmitterMockRecorder {
	return m.recorder
}

// Submit mocks base method.
func (m *MockSubmitter) Submit(ctx context.Context, ticket []byte, signature []byte) (chain.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Submit", ctx, ticket, signature)
	ret0, _ := ret[0].(chain.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Submit indicates an expected call of Submit.
func (mr *MockSubmitterMockRecorder) Submit(ctx, ticket, signature any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Submit", reflect.TypeOf((*MockSubmitter)(nil).Submit), ctx, ticket, signature)
}

// MockStatusReader is a mock of StatusReader interface.
type MockStatusReader struct {
	ctrl     *gomock.Controller
	recorder *MockStatusReaderMockRecorder
	isgomock struct{}
}

// MockStatusReaderMockRecorder is the mock recorder for MockStatusReader.
type MockStatusReaderMockRecorder struct {
	mock *MockStatusReader
}

// NewMockStatusReader creates a new mock instance.
func NewMockStatusReader(ctrl *gomock.Controller) *MockStatusReader {
	mock := &MockStatusReader{ctrl: ctrl}
	mock.recorder = &MockStatusReaderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStatusReader) EXPECT() *MockStatusReaderMockRecorder {
	return m.recorder
}

// Status mocks base method.
func (m *MockStatusReader) Status(ctx context.Context, pk ticket.PublicKey) (models0.Status, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Status", ctx, pk)
	ret0, _ := ret[0].(models0.Status)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Status indicates an expected call of Status.
func (mr *MockStatusReaderMockRecorder) Status(ctx, pk any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Status", reflect.TypeOf((*MockStatusReader)(nil).Status), ctx, pk)
}
