package service_registry_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodinohjaus/gateway/internal/service_registry"
)

// recordingService logs its lifecycle calls into a shared journal.
type recordingService struct {
	name     string
	journal  *[]string
	startErr error
	stopErr  error
}

func (s *recordingService) Start() error {
	*s.journal = append(*s.journal, "start:"+s.name)
	return s.startErr
}

func (s *recordingService) Stop() error {
	*s.journal = append(*s.journal, "stop:"+s.name)
	return s.stopErr
}

func TestStartServices_InRegistrationOrder(t *testing.T) {
	registry := service_registry.NewServiceRegistry(zerolog.Nop())
	var journal []string

	registry.RegisterService("first", &recordingService{name: "first", journal: &journal})
	registry.RegisterService("second", &recordingService{name: "second", journal: &journal})

	require.NoError(t, registry.StartServices())
	assert.Equal(t, []string{"start:first", "start:second"}, journal)
}

func TestStartServices_RollsBackOnFailure(t *testing.T) {
	registry := service_registry.NewServiceRegistry(zerolog.Nop())
	var journal []string

	registry.RegisterService("first", &recordingService{name: "first", journal: &journal})
	registry.RegisterService("broken", &recordingService{name: "broken", journal: &journal, startErr: errors.New("boom")})
	registry.RegisterService("never", &recordingService{name: "never", journal: &journal})

	err := registry.StartServices()

	require.Error(t, err)
	assert.Equal(t, []string{"start:first", "start:broken", "stop:first"}, journal)
}

func TestStopServices_ReverseOrderAndJoinsErrors(t *testing.T) {
	registry := service_registry.NewServiceRegistry(zerolog.Nop())
	var journal []string

	first := &recordingService{name: "first", journal: &journal, stopErr: errors.New("first stuck")}
	registry.RegisterService("first", first)
	registry.RegisterService("second", &recordingService{name: "second", journal: &journal})

	require.NoError(t, registry.StartServices())
	journal = journal[:0]

	err := registry.StopServices()

	require.Error(t, err)
	assert.Equal(t, []string{"stop:second", "stop:first"}, journal)
	assert.Contains(t, err.Error(), "first stuck")
}

func TestRegisterService_DuplicateIgnored(t *testing.T) {
	registry := service_registry.NewServiceRegistry(zerolog.Nop())
	var journal []string

	registry.RegisterService("dup", &recordingService{name: "a", journal: &journal})
	registry.RegisterService("dup", &recordingService{name: "b", journal: &journal})

	require.NoError(t, registry.StartServices())
	assert.Equal(t, []string{"start:a"}, journal)
}
