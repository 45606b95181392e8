package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockClientInfo is a mock implementation of the identity.ClientInfoInterface.
type MockClientInfo struct {
	mock.Mock
}

func (m *MockClientInfo) Load() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClientInfo) EnsureClientID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockClientInfo) GetClientID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClientInfo) GetUserName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClientInfo) SaveUserName(name string) error {
	args := m.Called(name)
	return args.Error(0)
}
