// Package config loads and validates the replication server configuration.
//
// Configuration is read from a YAML file. Missing keys keep the values of
// DefaultConfig and unknown keys are rejected. ${VAR} and ${VAR:-default}
// are replaced with environment variables before parsing:
//
//	ldap:
//	  address: "localhost:389"
//	  maxElementSize: 5242880
//
//	replication:
//	  serverID: 101
//	  address: ":8989"
//	  baseDN: "dc=example,dc=com"
//	  groupID: 1
//	  generationID: ${OBAREPL_GENERATION_ID:-0}
//	  protocolVersion: 8
//	  heartbeatInterval: 10s
//	  windowSize: 100
//	  probeInterval: 500ms
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stdout"
//
//	metrics:
//	  enabled: true
//	  address: ":9090"
//
//	assured:
//	  timeout: 2s
//
// ValidateConfig reports every problem at once. Watcher polls the file
// and delivers each valid new version to a callback.
package config
