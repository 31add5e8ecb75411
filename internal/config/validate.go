package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateLDAPConfig(&config.LDAP)...)
	errs = append(errs, validateReplicationConfig(&config.Replication)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)
	errs = append(errs, validateMetricsConfig(&config.Metrics)...)

	if config.Assured.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "assured.timeout",
			Message: "must be positive",
		})
	}

	return errs
}

func validateLDAPConfig(config *LDAPConfig) []error {
	var errs []error

	if config.Address != "" {
		if err := validateAddress(config.Address); err != nil {
			errs = append(errs, ValidationError{Field: "ldap.address", Message: err.Error()})
		}
	}
	if config.MaxElementSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "ldap.maxElementSize",
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateReplicationConfig validates replication configuration.
func validateReplicationConfig(config *ReplicationConfig) []error {
	var errs []error

	// Server IDs are carried in 16 bits inside every CSN.
	if config.ServerID < 1 || config.ServerID > math.MaxUint16 {
		errs = append(errs, ValidationError{
			Field:   "replication.serverID",
			Message: fmt.Sprintf("must be between 1 and %d", math.MaxUint16),
		})
	}

	if config.Address == "" {
		errs = append(errs, ValidationError{
			Field:   "replication.address",
			Message: "is required",
		})
	} else if err := validateAddress(config.Address); err != nil {
		errs = append(errs, ValidationError{Field: "replication.address", Message: err.Error()})
	}

	if config.BaseDN == "" {
		errs = append(errs, ValidationError{
			Field:   "replication.baseDN",
			Message: "is required",
		})
	} else if _, err := ldap.ParseDN(config.BaseDN); err != nil {
		errs = append(errs, ValidationError{Field: "replication.baseDN", Message: err.Error()})
	}

	if config.GroupID < 1 || config.GroupID > math.MaxInt8 {
		errs = append(errs, ValidationError{
			Field:   "replication.groupID",
			Message: fmt.Sprintf("must be between 1 and %d", math.MaxInt8),
		})
	}

	if config.GenerationID < 0 {
		errs = append(errs, ValidationError{
			Field:   "replication.generationID",
			Message: "must be non-negative",
		})
	}

	if config.ProtocolVersion < 0 || config.ProtocolVersion > math.MaxUint8 || !protocol.Version(config.ProtocolVersion).Valid() {
		errs = append(errs, ValidationError{
			Field:   "replication.protocolVersion",
			Message: fmt.Sprintf("must be between %d and %d", protocol.V1, protocol.CurrentVersion),
		})
	}

	if config.HeartbeatInterval < 0 {
		errs = append(errs, ValidationError{
			Field:   "replication.heartbeatInterval",
			Message: "must be non-negative",
		})
	}

	if config.WindowSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "replication.windowSize",
			Message: "must be positive",
		})
	}

	if config.ProbeInterval < 0 {
		errs = append(errs, ValidationError{
			Field:   "replication.probeInterval",
			Message: "must be non-negative",
		})
	}

	if config.DegradedStatusThreshold < 0 {
		errs = append(errs, ValidationError{
			Field:   "replication.degradedStatusThreshold",
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be trace, debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}

func validateMetricsConfig(config *MetricsConfig) []error {
	if !config.Enabled {
		return nil
	}
	if config.Address == "" {
		return []error{ValidationError{Field: "metrics.address", Message: "is required when metrics are enabled"}}
	}
	if err := validateAddress(config.Address); err != nil {
		return []error{ValidationError{Field: "metrics.address", Message: err.Error()}}
	}
	return nil
}

// validateAddress validates a network address in host:port format.
func validateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %v", err)
	}
	if port == "" {
		return fmt.Errorf("port is required")
	}
	return nil
}
