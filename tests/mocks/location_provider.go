package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/kodinohjaus/gateway/pkg/location"
)

// MockLocationProvider is a mock implementation of the location.Provider interface.
type MockLocationProvider struct {
	mock.Mock
}

func (m *MockLocationProvider) GetLocation() (location.Location, error) {
	args := m.Called()
	return args.Get(0).(location.Location), args.Error(1)
}
