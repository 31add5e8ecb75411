package config

import "time"

// Config holds the complete server configuration.
type Config struct {
	LDAP        LDAPConfig        `yaml:"ldap"`
	Replication ReplicationConfig `yaml:"replication"`
	Logging     LogConfig         `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Assured     AssuredConfig     `yaml:"assured"`
}

// LDAPConfig holds the LDAP codec configuration.
type LDAPConfig struct {
	// Address is the LDAP server /health reads the root DSE of. Empty
	// disables the check.
	Address string `yaml:"address"`
	// MaxElementSize bounds a decoded BER element. Zero means unlimited.
	MaxElementSize int `yaml:"maxElementSize"`
}

// ReplicationConfig holds the replication server configuration.
type ReplicationConfig struct {
	ServerID int    `yaml:"serverID"`
	Address  string `yaml:"address"`
	// URL is advertised to peers in start and topology messages. It
	// defaults to Address.
	URL          string `yaml:"url"`
	BaseDN       string `yaml:"baseDN"`
	GroupID      int    `yaml:"groupID"`
	GenerationID int64  `yaml:"generationID"`
	// ProtocolVersion is the highest version spoken.
	ProtocolVersion   int           `yaml:"protocolVersion"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	WindowSize        int           `yaml:"windowSize"`
	ProbeInterval     time.Duration `yaml:"probeInterval"`
	// SSLEncryption is only advertised in start messages.
	SSLEncryption           bool `yaml:"sslEncryption"`
	DegradedStatusThreshold int  `yaml:"degradedStatusThreshold"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig holds the metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// AssuredConfig holds assured replication configuration.
type AssuredConfig struct {
	// Timeout is how long acks of an assured update are awaited.
	Timeout time.Duration `yaml:"timeout"`
}

// AdvertisedURL returns URL, or Address when URL is empty.
func (c ReplicationConfig) AdvertisedURL() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Address
}
