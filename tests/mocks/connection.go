package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/kodinohjaus/gateway/pkg/socket"
)

// MockConnection is a mock implementation of the socket.Connection interface.
type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Connect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConnection) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConnection) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockConnection) On(event string, handler socket.Handler) int {
	args := m.Called(event, handler)
	return args.Int(0)
}

func (m *MockConnection) Off(event string, id int) {
	m.Called(event, id)
}

func (m *MockConnection) Emit(event string, payload any) error {
	args := m.Called(event, payload)
	return args.Error(0)
}

func (m *MockConnection) OnStateChange(handler socket.StateHandler) {
	m.Called(handler)
}
