// Package logging provides structured logging for the obarepl codec and
// replication services.
//
// # Overview
//
// The logging package provides a structured logging interface with support for:
//
//   - Multiple log levels (trace, debug, info, warn, error)
//   - Text and JSON output formats
//   - Request ID tracking for distributed tracing
//   - Field-based contextual logging
//
// # Creating a Logger
//
// Create a logger with configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/obarepl/obarepl.log",
//	})
//
// Or use defaults:
//
//	logger := logging.NewDefault() // Info level, text format, stdout
//
// For testing, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Log Levels
//
// Five log levels are supported. Trace is reserved for per-message codec
// output such as "DECODE LDAP SEARCH REQUEST":
//
//	logger.Trace("ENCODE LDAP BIND RESULT", "messageID", 1)
//	logger.Debug("detailed debugging info", "key", "value")
//	logger.Info("informational message", "key", "value")
//	logger.Warn("warning message", "key", "value")
//	logger.Error("error message", "key", "value")
//
// Parse level from string:
//
//	level := logging.ParseLevel("debug") // Returns LevelDebug
//
// # Structured Logging
//
// Add key-value pairs to log entries:
//
//	logger.Info("replication session opened",
//	    "peer", "10.0.0.2:8989",
//	    "serverID", 16,
//	    "protocolVersion", 8,
//	)
//
// Output (JSON format):
//
//	{
//	    "ts": "2026-02-18T10:30:00Z",
//	    "level": "info",
//	    "msg": "replication session opened",
//	    "peer": "10.0.0.2:8989",
//	    "serverID": 16,
//	    "protocolVersion": 8
//	}
//
// # Request ID Tracking
//
// Request IDs are random UUIDs:
//
//	requestID := logging.GenerateRequestID()
//	connLogger := logger.WithRequestID(requestID)
//
//	connLogger.Info("processing request") // Includes request_id field
//
// Replication sessions carry their session ID instead:
//
//	sessionLogger := logger.WithSession(sessionID)
//
// # Contextual Fields
//
// Create loggers with persistent fields:
//
//	connLogger := logger.WithFields(
//	    logging.FieldRemote, conn.RemoteAddr().String(),
//	    logging.FieldPeerID, peerID,
//	)
//
// The Field constants name the keys shared across packages. CSNs, message
// types and errors are written by their text form.
//
//	// All subsequent logs include these fields
//	connLogger.Info("start message received")
//	connLogger.Info("window granted")
//
// # Output Formats
//
// Text format (human-readable):
//
//	2026-02-18T10:30:00Z [info] replication session opened session=5f0c2a9e serverID=16 peer=10.0.0.2:8989 protocolVersion=8
//
// JSON format (machine-parseable):
//
//	{"ts":"2026-02-18T10:30:00Z","level":"info","msg":"replication session opened",...}
//
// # Output Destinations
//
// Configure output destination:
//
//	logging.Config{Output: "stdout"}           // Standard output
//	logging.Config{Output: "stderr"}           // Standard error
//	logging.Config{Output: "/var/log/obarepl.log"} // File path
package logging
