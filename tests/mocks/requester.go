package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kodinohjaus/gateway/internal/models"
)

// MockRequester is a mock implementation of the reconciler.Requester interface.
type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Request(ctx context.Context, env models.Envelope) models.Response {
	args := m.Called(ctx, env)
	return args.Get(0).(models.Response)
}

func (m *MockRequester) RequestOnce(ctx context.Context, env models.Envelope) models.Response {
	args := m.Called(ctx, env)
	return args.Get(0).(models.Response)
}
