// Package mocks holds gomock doubles for Service, Receipts and Deauthenticator.
// They follow mockgen's source mode layout; go generate in the parent package
// replaces them with mockgen output.
package mocks

import (
	context "context"
	reflect "reflect"

	chain "bioauth/internal/chain"
	facetec "bioauth/internal/facetec"
	models "bioauth/internal/ledger/models"
	service "bioauth/internal/node/service"
	ticket "bioauth/internal/ticket"
	gomock "go.uber.org/mock/gomock"
)

// MockService is a mock of Service interface.
type MockService struct {
	ctrl     *gomock.Controller
	recorder *MockServiceMockRecorder
	isgomock struct{}
}

// MockServiceMockRecorder is the mock recorder for MockService.
type MockServiceMockRecorder struct {
	mock *MockService
}

// NewMockService creates a new mock instance.
func NewMockService(ctrl *gomock.Controller) *MockService {
	mock := &MockService{ctrl: ctrl}
	mock.recorder = &MockServiceMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockService) EXPECT() *MockServiceMockRecorder {
	return m.recorder
}

// Authenticate mocks base method.
func (m *MockService) Authenticate(ctx context.Context, liveness []byte) (service.AuthenticateResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Authenticate", ctx, liveness)
	ret0, _ := ret[0].(service.AuthenticateResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Authenticate indicates an expected call of Authenticate.
func (mr *MockServiceMockRecorder) Authenticate(ctx, liveness any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Authenticate", reflect.TypeOf((*MockService)(nil).Authenticate), ctx, liveness)
}

// DeviceSDKParams mocks base method.
func (m *MockService) DeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeviceSDKParams", ctx)
	ret0, _ := ret[0].(facetec.DeviceSDKParams)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// DeviceSDKParams indicates an expected call of DeviceSDKParams.
func (mr *MockServiceMockRecorder) DeviceSDKParams(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeviceSDKParams", reflect.TypeOf((*MockService)(nil).DeviceSDKParams), ctx)
}

// Enroll mocks base method.
func (m *MockService) Enroll(ctx context.Context, liveness []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Enroll", ctx, liveness)
	ret0, _ := ret[0].(error)
	return ret0
}

// Enroll indicates an expected call of Enroll.
func (mr *MockServiceMockRecorder) Enroll(ctx, liveness any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Enroll", reflect.TypeOf((*MockService)(nil).Enroll), ctx, liveness)
}

// SessionToken mocks base method.
func (m *MockService) SessionToken(ctx context.Context) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SessionToken", ctx)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// SessionToken indicates an expected call of SessionToken.
func (mr *MockServiceMockRecorder) SessionToken(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SessionToken", reflect.TypeOf((*MockService)(nil).SessionToken), ctx)
}

// Status mocks base method.
func (m *MockService) Status(ctx context.Context) (models.Status, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Status", ctx)
	ret0, _ := ret[0].(models.Status)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Status indicates an expected call of Status.
func (mr *MockServiceMockRecorder) Status(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Status", reflect.TypeOf((*MockService)(nil).Status), ctx)
}

// MockReceipts is a mock of Receipts interface.
type MockReceipts struct {
	ctrl     *gomock.Controller
	recorder *MockReceiptsMockRecorder
	isgomock struct{}
}

// MockReceiptsMockRecorder is the mock recorder for MockReceipts.
type MockReceiptsMockRecorder struct {
	mock *MockReceipts
}

// NewMockReceipts creates a new mock instance.
func NewMockReceipts(ctrl *gomock.Controller) *MockReceipts {
	mock := &MockReceipts{ctrl: ctrl}
	mock.recorder = &MockReceiptsMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockReceipts) EXPECT() *MockReceiptsMockRecorder {
	return m.recorder
}

// Receipt mocks base method.
func (m *MockReceipts) Receipt(hash string) (chain.Receipt, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Receipt", hash)
	ret0, _ := ret[0].(chain.Receipt)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// Receipt indicates an expected call of Receipt.
func (mr *MockReceiptsMockRecorder) Receipt(hash any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Receipt", reflect.TypeOf((*MockReceipts)(nil).Receipt), hash)
}

// MockDeauthenticator is a mock of Deauthenticator interface.
type MockDeauthenticator struct {
	ctrl     *gomock.Controller
	recorder *MockDeauthenticatorMockRecorder
	isgomock struct{}
}

// MockDeauthenticatorMockRecorder is the mock recorder for MockDeauthenticator.
type MockDeauthenticatorMockRecorder struct {
	mock *MockDeauthenticator
}

// NewMockDeauthenticator creates a new mock instance.
func NewMockDeauthenticator(ctrl *gomock.Controller) *MockDeauthenticator {
	mock := &MockDeauthenticator{ctrl: ctrl}
	mock.recorder = &MockDeauthenticatorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockDeauthenticator) EXPECT() *MockDeauthenticatorMockRecorder {
	return m.recorder
}

// Deauthenticate mocks base method.
func (m *MockDeauthenticator) Deauthenticate(ctx context.Context, pk ticket.PublicKey, reason models.DeauthenticationReason) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Deauthenticate", ctx, pk, reason)
	ret0, _ := ret[0].(error)
	return ret0
}

// Deauthenticate indicates an expected call of Deauthenticate.
func (mr *MockDeauthenticatorMockRecorder) Deauthenticate(ctx, pk, reason any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Deauthenticate", reflect.TypeOf((*MockDeauthenticator)(nil).Deauthenticate), ctx, pk, reason)
}
