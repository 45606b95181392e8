package identity

import (
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/kodinohjaus/gateway/pkg/file"
)

// ClientInfo holds the gateway's persistent identity and the display name of
// the user the backend last authenticated it as.
type ClientInfo struct {
	ClientID string `json:"client_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// ClientInfoInterface defines methods for managing the gateway identity.
type ClientInfoInterface interface {
	Load() error
	EnsureClientID() (string, error)
	GetClientID() string
	GetUserName() string
	SaveUserName(name string) error
}

// ClientInfoStore manages the identity and its file persistence.
type ClientInfoStore struct {
	path    string
	fileOps file.FileOperations

	mu   sync.Mutex
	info ClientInfo
}

// NewClientInfoStore initializes a new ClientInfoStore instance.
func NewClientInfoStore(path string, fileOps file.FileOperations) *ClientInfoStore {
	return &ClientInfoStore{
		path:    path,
		fileOps: fileOps,
	}
}

// Load reads the identity file. A missing file leaves empty defaults.
func (c *ClientInfoStore) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.fileOps.ReadJsonFile(c.path, &c.info)
	if err != nil {
		if os.IsNotExist(err) {
			c.info = ClientInfo{}
			return nil
		}
		return err
	}
	return nil
}

// EnsureClientID returns the persistent client id, generating and persisting
// one on first run.
func (c *ClientInfoStore) EnsureClientID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.info.ClientID != "" {
		return c.info.ClientID, nil
	}

	c.info.ClientID = uuid.New().String()
	if err := c.fileOps.WriteJsonFile(c.path, c.info); err != nil {
		return "", err
	}
	return c.info.ClientID, nil
}

// GetClientID returns the current client id.
func (c *ClientInfoStore) GetClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.ClientID
}

// GetUserName returns the display name from the last successful authentication.
func (c *ClientInfoStore) GetUserName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.UserName
}

// SaveUserName updates the display name and writes it back to the file.
func (c *ClientInfoStore) SaveUserName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.info.UserName = name
	return c.fileOps.WriteJsonFile(c.path, c.info)
}
