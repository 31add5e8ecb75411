package main

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	fmt.Fprint(w, `obarepl - LDAP replication server

Usage:
  obarepl <command> [options]

Commands:
  serve       Start the replication server
  decode      Decode a replication PDU or LDAP message
  version     Show version information

Use "obarepl <command> -h" for more information about a command.
`)
}

func printServeUsage(w io.Writer) {
	fmt.Fprint(w, `Start the replication server

Usage:
  obarepl serve [options]

Options:
  -config string
        Path to configuration file, reloaded when it changes
  -env-file string
        Environment file loaded before the configuration (default ".env")
  -address string
        Replication listen address (overrides config, default ":8989")
  -server-id int
        Replication server ID (overrides config)
  -log-level string
        Log level: trace, debug, info, warn, error (overrides config)
  -h, -help
        Show this help message

Configuration values may reference environment variables as ${VAR} or
${VAR:-default}.
`)
}

func printDecodeUsage(w io.Writer) {
	fmt.Fprint(w, `Decode a replication PDU or LDAP message

Usage:
  obarepl decode [options] <hex>...

The hex digits may be split over several arguments. Use "-" to read them
from standard input.

Options:
  -version int
        Replication protocol version to decode with (default 8)
  -ldap
        Decode an LDAP message instead of a replication PDU
  -h, -help
        Show this help message

Examples:
  obarepl decode -version 1 08343200
  obarepl decode -ldap 30 0c 02 01 01 60 07 02 01 03 04 00 80 00
`)
}

func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  obarepl version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
