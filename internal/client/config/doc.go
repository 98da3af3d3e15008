// Package config loads runtime configuration for the divvyauth CLI.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// given with -c or -config, then the -a, -t and -s flags.
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8000",
//	  "request_timeout": "10s",
//	  "session_dsn": "divvy_session.db"
//	}
package config
