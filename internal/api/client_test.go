package api_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kodinohjaus/gateway/internal/api"
	"github.com/kodinohjaus/gateway/internal/models"
	"github.com/kodinohjaus/gateway/tests/mocks"
)

func TestPing(t *testing.T) {
	requester := new(mocks.MockRequester)
	requester.On("Request", mock.Anything, mock.MatchedBy(func(env models.Envelope) bool {
		return env.Type == models.RequestPing
	})).Return(models.Response{Success: true})

	client := api.NewClient(requester, zerolog.Nop())

	assert.NoError(t, client.Ping(context.Background()))
}

func TestSQLQuery(t *testing.T) {
	requester := new(mocks.MockRequester)
	requester.On("Request", mock.Anything, mock.MatchedBy(func(env models.Envelope) bool {
		data, ok := env.Data.(api.SQLQueryData)
		return env.Type == models.RequestSQLQuery && ok && data.SQL == "SELECT * FROM rooms"
	})).Return(models.Response{Success: true, Data: json.RawMessage(`[{"room":"sauna"}]`)})

	client := api.NewClient(requester, zerolog.Nop())
	rows, err := client.SQLQuery(context.Background(), "SELECT * FROM rooms")

	require.NoError(t, err)
	assert.JSONEq(t, `[{"room":"sauna"}]`, string(rows))
}

func TestSQLQuery_FailureCarriesReason(t *testing.T) {
	requester := new(mocks.MockRequester)
	requester.On("Request", mock.Anything, mock.Anything).
		Return(models.Response{Success: false, Error: "syntax error"})

	client := api.NewClient(requester, zerolog.Nop())
	_, err := client.SQLQuery(context.Background(), "SELEKT")

	require.Error(t, err)
	assert.Equal(t, "syntax error", err.Error())
}

func TestControllerCommand(t *testing.T) {
	requester := new(mocks.MockRequester)
	requester.On("Request", mock.Anything, mock.MatchedBy(func(env models.Envelope) bool {
		data, ok := env.Data.(api.ControllerCommandData)
		return env.Type == models.RequestControllerCommand && ok &&
			data.Target == "sauna_heater" && data.Command == "on"
	})).Return(models.Response{Success: true})

	client := api.NewClient(requester, zerolog.Nop())

	assert.NoError(t, client.ControllerCommand(context.Background(), "sauna_heater", "on"))
}

func TestTrendQuery(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	requester := new(mocks.MockRequester)
	requester.On("Request", mock.Anything, mock.MatchedBy(func(env models.Envelope) bool {
		data, ok := env.Data.(api.TrendQueryData)
		return env.Type == models.RequestTrendQuery && ok &&
			len(data.Series) == 1 && data.Series[0] == "outdoor_temp" &&
			data.Start.Equal(start) && data.End.Equal(end)
	})).Return(models.Response{Success: true, Data: json.RawMessage(`[]`)})

	client := api.NewClient(requester, zerolog.Nop())
	_, err := client.TrendQuery(context.Background(), []string{"outdoor_temp"}, start, end)

	assert.NoError(t, err)
}

func TestGlobalData(t *testing.T) {
	requester := new(mocks.MockRequester)
	requester.On("Request", mock.Anything, mock.MatchedBy(func(env models.Envelope) bool {
		return env.Type == models.RequestGetGlobalData
	})).Return(models.Response{Success: true, Data: json.RawMessage(`{"serverVersion":"2.5.1"}`)})

	client := api.NewClient(requester, zerolog.Nop())
	data, err := client.GlobalData(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "2.5.1", data.ServerVersion)
}

func TestVerifyServerVersion(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		version    string
		wantErr    bool
	}{
		{"satisfied", ">= 2.4", "2.5.1", false},
		{"too old", ">= 2.4", "2.3.0", true},
		{"no constraint skips the fetch", "", "", false},
		{"unreported version passes", ">= 2.4", "", false},
		{"garbage version", ">= 2.4", "not-a-version", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requester := new(mocks.MockRequester)
			data, _ := json.Marshal(models.GlobalData{ServerVersion: tt.version})
			requester.On("Request", mock.Anything, mock.Anything).
				Return(models.Response{Success: true, Data: data}).Maybe()

			client := api.NewClient(requester, zerolog.Nop())
			err := client.VerifyServerVersion(context.Background(), tt.constraint)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.constraint == "" {
				requester.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)
			}
		})
	}
}
