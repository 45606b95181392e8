package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/kodinohjaus/gateway/pkg/token"
)

// MockTokenStore is a mock implementation of the token.Store interface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Get() (token.Credential, bool) {
	args := m.Called()
	return args.Get(0).(token.Credential), args.Bool(1)
}

func (m *MockTokenStore) Set(tokenValue string, ttlSeconds int64) error {
	args := m.Called(tokenValue, ttlSeconds)
	return args.Error(0)
}

func (m *MockTokenStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTokenStore) IsValid() bool {
	args := m.Called()
	return args.Bool(0)
}
