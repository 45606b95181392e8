package services_test

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kodinohjaus/gateway/internal/services"
	"github.com/kodinohjaus/gateway/internal/status"
	"github.com/kodinohjaus/gateway/pkg/socket"
	"github.com/kodinohjaus/gateway/tests/mocks"
)

func TestStatusService_PublishesInboundSnapshots(t *testing.T) {
	conn := new(mocks.MockConnection)
	cache := status.NewCache(zerolog.Nop())

	var captured socket.Handler
	conn.Mock.On("On", "status", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(socket.Handler)
	}).Return(7)
	conn.Mock.On("Off", "status", 7).Return()

	svc := services.NewStatusService("", conn, cache, zerolog.Nop())
	require.NoError(t, svc.Start())
	require.NotNil(t, captured)

	captured(json.RawMessage(`{"sauna":80}`))
	assert.JSONEq(t, `{"sauna":80}`, string(cache.GetCurrent()))

	require.NoError(t, svc.Stop())
	conn.AssertExpectations(t)
}

func TestStatusService_CustomEventName(t *testing.T) {
	conn := new(mocks.MockConnection)
	conn.Mock.On("On", "tila", mock.Anything).Return(1)

	svc := services.NewStatusService("tila", conn, status.NewCache(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, svc.Start())

	conn.AssertCalled(t, "On", "tila", mock.Anything)
}

func TestStatusService_Lifecycle(t *testing.T) {
	conn := new(mocks.MockConnection)
	conn.Mock.On("On", "status", mock.Anything).Return(1)
	conn.Mock.On("Off", "status", 1).Return()

	svc := services.NewStatusService("", conn, status.NewCache(zerolog.Nop()), zerolog.Nop())

	assert.Error(t, svc.Stop()) // not running yet
	require.NoError(t, svc.Start())
	assert.Error(t, svc.Start()) // already running
	require.NoError(t, svc.Stop())
	assert.Error(t, svc.Stop())
}
