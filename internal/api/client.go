package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/internal/models"
	"github.com/kodinohjaus/gateway/internal/reconciler"
)

// SQLQueryData carries a raw SQL statement for the backend's query endpoint.
type SQLQueryData struct {
	SQL string `json:"sql"`
}

// ControllerCommandData addresses one device behind a controller.
type ControllerCommandData struct {
	Target  string `json:"target"`
	Command any    `json:"command"`
}

// TrendQueryData selects sensor series over a time range.
type TrendQueryData struct {
	Series []string  `json:"series"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Client exposes the backend's operations as typed calls over the reconciler.
// Every method returns structured errors built from the uniform response
// shape; none of them panic or retry beyond the reconciler's own policy.
type Client struct {
	requester reconciler.Requester
	logger    zerolog.Logger
}

// NewClient creates a backend API client.
func NewClient(requester reconciler.Requester, logger zerolog.Logger) *Client {
	return &Client{requester: requester, logger: logger}
}

// Ping checks end-to-end liveness of the session.
func (c *Client) Ping(ctx context.Context) error {
	resp := c.requester.Request(ctx, models.Envelope{Type: models.RequestPing})
	return respError(resp)
}

// SQLQuery runs a raw SQL statement and returns the result rows.
func (c *Client) SQLQuery(ctx context.Context, sql string) (json.RawMessage, error) {
	resp := c.requester.Request(ctx, models.Envelope{
		Type: models.RequestSQLQuery,
		Data: SQLQueryData{SQL: sql},
	})
	if err := respError(resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DatabaseQuery reads documents from the backend store.
func (c *Client) DatabaseQuery(ctx context.Context, query any) (json.RawMessage, error) {
	resp := c.requester.Request(ctx, models.Envelope{
		Type: models.RequestDatabaseQuery,
		Data: query,
	})
	if err := respError(resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DatabaseWrite persists a document in the backend store.
func (c *Client) DatabaseWrite(ctx context.Context, document any) error {
	resp := c.requester.Request(ctx, models.Envelope{
		Type: models.RequestDatabaseWrite,
		Data: document,
	})
	return respError(resp)
}

// ControllerCommand asks the backend to drive a device (relay, setpoint,
// light). The backend owns all device state; this is fire-and-confirm.
func (c *Client) ControllerCommand(ctx context.Context, target string, command any) error {
	resp := c.requester.Request(ctx, models.Envelope{
		Type: models.RequestControllerCommand,
		Data: ControllerCommandData{Target: target, Command: command},
	})
	return respError(resp)
}

// TrendQuery fetches historical sensor series.
func (c *Client) TrendQuery(ctx context.Context, series []string, start, end time.Time) (json.RawMessage, error) {
	resp := c.requester.Request(ctx, models.Envelope{
		Type: models.RequestTrendQuery,
		Data: TrendQueryData{Series: series, Start: start, End: end},
	})
	if err := respError(resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GlobalData fetches backend-wide settings and server info.
func (c *Client) GlobalData(ctx context.Context) (models.GlobalData, error) {
	resp := c.requester.Request(ctx, models.Envelope{Type: models.RequestGetGlobalData})
	if err := respError(resp); err != nil {
		return models.GlobalData{}, err
	}

	var data models.GlobalData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return models.GlobalData{}, fmt.Errorf("malformed global data: %w", err)
	}
	return data, nil
}

// ControllerStatus fetches the current controller snapshot on demand,
// independent of the unsolicited status push stream.
func (c *Client) ControllerStatus(ctx context.Context) (json.RawMessage, error) {
	resp := c.requester.Request(ctx, models.Envelope{Type: models.RequestGetControllerStatus})
	if err := respError(resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// VerifyServerVersion checks the backend version from global data against a
// semver constraint (e.g. ">= 2.4"). A backend that does not report a
// version passes the check; this is advisory compatibility detection, not a
// gate.
func (c *Client) VerifyServerVersion(ctx context.Context, constraint string) error {
	if constraint == "" {
		return nil
	}

	data, err := c.GlobalData(ctx)
	if err != nil {
		return err
	}
	if data.ServerVersion == "" {
		c.logger.Debug().Msg("Server did not report a version, skipping compatibility check")
		return nil
	}

	required, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	version, err := semver.NewVersion(data.ServerVersion)
	if err != nil {
		return fmt.Errorf("unparseable server version %q: %w", data.ServerVersion, err)
	}

	if !required.Check(version) {
		return fmt.Errorf("server version %s does not satisfy %s", data.ServerVersion, constraint)
	}
	return nil
}

// respError converts a failed response into an error carrying the most
// specific reason available.
func respError(resp models.Response) error {
	if resp.Success {
		return nil
	}
	if reason := resp.Reason(); reason != "" {
		return errors.New(reason)
	}
	return errors.New("request failed")
}
