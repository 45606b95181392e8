package models

import "encoding/json"

// RequestType identifies the kind of request carried by an Envelope.
type RequestType string

// Request kinds understood by the Kodinohjaus backend.
const (
	RequestAuthLocation        RequestType = "auth_location"
	RequestAuthPassword        RequestType = "auth_password"
	RequestVerifyToken         RequestType = "verify_token"
	RequestSQLQuery            RequestType = "sql_query"
	RequestDatabaseQuery       RequestType = "database_query"
	RequestDatabaseWrite       RequestType = "database_write"
	RequestControllerCommand   RequestType = "controller_command"
	RequestTrendQuery          RequestType = "trend_query"
	RequestGetGlobalData       RequestType = "get_global_data"
	RequestGetControllerStatus RequestType = "get_controller_status"
	RequestPing                RequestType = "ping"
)

// Coordinates carries a geographic position for location-based authentication.
// The server owns all proximity validation; the client never computes distances.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Envelope is the structured request object sent to the backend. The ID is a
// client-generated correlation id echoed back by servers that support it;
// Token is injected by the reconciler immediately before each send.
type Envelope struct {
	ID       string       `json:"id,omitempty"`
	Type     RequestType  `json:"type"`
	Data     any          `json:"data,omitempty"`
	Token    string       `json:"token,omitempty"`
	Location *Coordinates `json:"location,omitempty"`
	Password string       `json:"password,omitempty"`
}

// Response is the uniform result shape returned by the backend and by the
// reconciler for every settlement path, including timeouts.
type Response struct {
	ID           string          `json:"id,omitempty"`
	Success      bool            `json:"success"`
	Data         json.RawMessage `json:"data,omitempty"`
	Error        string          `json:"error,omitempty"`
	Message      string          `json:"message,omitempty"`
	RequiresAuth bool            `json:"requiresAuth,omitempty"`
}

// Reason returns the most specific failure text carried by the response.
func (r Response) Reason() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}
