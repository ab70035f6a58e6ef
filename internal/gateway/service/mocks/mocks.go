// Package mocks holds gomock doubles for Vendor.
// They follow mockgen's source mode layout; go generate in the parent package
// replaces them with mockgen output.
package mocks

import (
	context "context"
	reflect "reflect"

	facetec "bioauth/internal/facetec"
	gomock "go.uber.org/mock/gomock"
)

// MockVendor is a mock of Vendor interface.
type MockVendor struct {
	ctrl     *gomock.Controller
	recorder *MockVendorMockRecorder
	isgomock struct{}
}

// MockVendorMockRecorder is the mock recorder for MockVendor.
type MockVendorMockRecorder struct {
	mock *MockVendor
}

// NewMockVendor creates a new mock instance.
func NewMockVendor(ctrl *gomock.Controller) *MockVendor {
	mock := &MockVendor{ctrl: ctrl}
	mock.recorder = &MockVendorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockVendor) EXPECT() *MockVendorMockRecorder {
	return m.recorder
}

// DBEnroll mocks base method.
func (m *MockVendor) DBEnroll(ctx context.Context, req facetec.DBEnrollRequest) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DBEnroll", ctx, req)
	ret0, _ := ret[0].(error)
	return ret0
}

// DBEnroll indicates an expected call of DBEnroll.
func (mr *MockVendorMockRecorder) DBEnroll(ctx, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DBEnroll", reflect.TypeOf((*MockVendor)(nil).DBEnroll), ctx, req)
}

// DBSearch mocks base method.
func (m *MockVendor) DBSearch(ctx context.Context, req facetec.DBSearchRequest) (*facetec.DBSearchResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DBSearch", ctx, req)
	ret0, _ := ret[0].(*facetec.DBSearchResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// DBSearch indicates an expected call of DBSearch.
func (mr *MockVendorMockRecorder) DBSearch(ctx, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DBSearch", reflect.TypeOf((*MockVendor)(nil).DBSearch), ctx, req)
}

// Enrollment3D mocks base method.
func (m *MockVendor) Enrollment3D(ctx context.Context, req facetec.Enrollment3DRequest) (*facetec.Enrollment3DResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Enrollment3D", ctx, req)
	ret0, _ := ret[0].(*facetec.Enrollment3DResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Enrollment3D indicates an expected call of Enrollment3D.
func (mr *MockVendorMockRecorder) Enrollment3D(ctx, req any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Enrollment3D", reflect.TypeOf((*MockVendor)(nil).Enrollment3D), ctx, req)
}

// SessionToken mocks base method.
func (m *MockVendor) SessionToken(ctx context.Context) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SessionToken", ctx)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// SessionToken indicates an expected call of SessionToken.
func (mr *MockVendorMockRecorder) SessionToken(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SessionToken", reflect.TypeOf((*MockVendor)(nil).SessionToken), ctx)
}
