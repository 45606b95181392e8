package utils

import (
	"time"

	"github.com/kodinohjaus/gateway/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	Server struct {
		URL              string        `yaml:"url"`               // Backend websocket endpoint
		MinVersion       string        `yaml:"min_version"`       // Semver constraint for backend compatibility
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"` // Dial timeout
	} `yaml:"server"`

	Reconnect struct {
		BaseDelay   time.Duration `yaml:"base_delay"`   // First backoff delay
		MaxDelay    time.Duration `yaml:"max_delay"`    // Backoff cap
		MaxAttempts int           `yaml:"max_attempts"` // 0 retries forever
	} `yaml:"reconnect"`

	Request struct {
		Timeout      time.Duration `yaml:"timeout"`       // Bounded wait per request attempt
		AuthKeywords []string      `yaml:"auth_keywords"` // Fallback auth-failure vocabulary
	} `yaml:"request"`

	Auth struct {
		TokenFile    string `yaml:"token_file"`    // Path to the persisted credential
		IdentityFile string `yaml:"identity_file"` // Path to the client identity file
	} `yaml:"auth"`

	Location struct {
		Provider          string `yaml:"provider"`        // google | gps | none
		MapsAPIKey        string `yaml:"maps_api_key"`    // Google Maps API key
		GPSDevicePort     string `yaml:"gps_device_port"` // Serial port of the GPS receiver
		GPSDeviceBaudRate int    `yaml:"gps_baud_rate"`   // Baud rate for the GPS receiver
	} `yaml:"location"`

	Services struct {
		Ping struct {
			Enabled  bool          `yaml:"enabled"`  // Enable/disable keepalive pings
			Interval time.Duration `yaml:"interval"` // Interval between pings
		} `yaml:"ping"`

		Status struct {
			Event string `yaml:"event"` // Inbound event name carrying status pushes
		} `yaml:"status"`

		Metrics struct {
			Enabled       bool          `yaml:"enabled"`        // Enable/disable host metrics reporting
			Interval      time.Duration `yaml:"interval"`       // Interval between reports
			Timeout       time.Duration `yaml:"timeout"`        // Timeout for one collection round
			MonitorCPU    bool          `yaml:"monitor_cpu"`    // Collect CPU usage
			MonitorMemory bool          `yaml:"monitor_memory"` // Collect memory usage
		} `yaml:"metrics"`

		MQTTBridge struct {
			Enabled  bool   `yaml:"enabled"`   // Enable/disable the local MQTT bridge
			Broker   string `yaml:"broker"`    // Local broker address
			ClientID string `yaml:"client_id"` // MQTT client id
			Topic    string `yaml:"topic"`     // Topic receiving status snapshots
			QOS      int    `yaml:"qos"`       // MQTT QoS level for republished snapshots
		} `yaml:"mqtt_bridge"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
