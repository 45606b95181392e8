package models

import "encoding/json"

// AuthData is the payload carried in the data field of a successful
// authentication or token-verification response.
type AuthData struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // seconds until expiry
	Name      string `json:"name,omitempty"`
}

// ParseAuthData decodes the data field of an authentication response.
func ParseAuthData(raw json.RawMessage) (AuthData, error) {
	var data AuthData
	if err := json.Unmarshal(raw, &data); err != nil {
		return AuthData{}, err
	}
	return data, nil
}
