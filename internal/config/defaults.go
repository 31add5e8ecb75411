package config

import "time"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		LDAP: LDAPConfig{
			Address:        "",
			MaxElementSize: 5 * 1024 * 1024,
		},
		Replication: ReplicationConfig{
			ServerID:                0,
			Address:                 ":8989",
			URL:                     "",
			BaseDN:                  "",
			GroupID:                 1,
			GenerationID:            0,
			ProtocolVersion:         8,
			HeartbeatInterval:       10 * time.Second,
			WindowSize:              100,
			ProbeInterval:           500 * time.Millisecond,
			SSLEncryption:           false,
			DegradedStatusThreshold: 5000,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
		},
		Assured: AssuredConfig{
			Timeout: 2 * time.Second,
		},
	}
}
