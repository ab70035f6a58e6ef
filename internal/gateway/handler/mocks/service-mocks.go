// Package mocks holds gomock doubles for Service.
// They follow mockgen's source mode layout; go generate in the parent package
// replaces them with mockgen output.
package mocks

import (
	context "context"
	reflect "reflect"

	facetec "bioauth/internal/facetec"
	service "bioauth/internal/gateway/service"
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
func (m *MockService) Authenticate(ctx context.Context, req service.AuthenticateRequest) (*ticket.SignedTicket, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Authenticate", ctx, req)
	ret0, _ := ret[0].(*ticket.SignedTicket)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Authenticate indicates an expected call of Authenticate.
func (mr *MockServiceMockRecorder) Authenticate(ctx, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Authenticate", reflect.TypeOf((*MockService)(nil).Authenticate), ctx, req)
}

// Enroll mocks base method.
func (m *MockService) Enroll(ctx context.Context, req service.EnrollRequest) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Enroll", ctx, req)
	ret0, _ := ret[0].(error)
	return ret0
}

// Enroll indicates an expected call of Enroll.
func (mr *MockServiceMockRecorder) Enroll(ctx, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Enroll", reflect.TypeOf((*MockService)(nil).Enroll), ctx, req)
}

// GetDeviceSDKParams mocks base method.
func (m *MockService) GetDeviceSDKParams(ctx context.Context) (facetec.DeviceSDKParams, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetDeviceSDKParams", ctx)
	ret0, _ := ret[0].(facetec.DeviceSDKParams)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetDeviceSDKParams indicates an expected call of GetDeviceSDKParams.
func (mr *MockServiceMockRecorder) GetDeviceSDKParams(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetDeviceSDKParams", reflect.TypeOf((*MockService)(nil).GetDeviceSDKParams), ctx)
}

// GetSessionToken mocks base method.
func (m *MockService) GetSessionToken(ctx context.Context) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetSessionToken", ctx)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetSessionToken indicates an expected call of GetSessionToken.
func (mr *MockServiceMockRecorder) GetSessionToken(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetSessionToken", reflect.TypeOf((*MockService)(nil).GetSessionToken), ctx)
}

// SignerPublicKey mocks base method.
func (m *MockService) SignerPublicKey() string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SignerPublicKey")
	ret0, _ := ret[0].(string)
	return ret0
}

// SignerPublicKey indicates an expected call of SignerPublicKey.
func (mr *MockServiceMockRecorder) SignerPublicKey() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SignerPublicKey", reflect.TypeOf((*MockService)(nil).SignerPublicKey))
}
