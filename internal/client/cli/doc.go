// Package cli implements the divvyauth command-line client.
//
// Each invocation runs one command (register, login, refresh, logout or me)
// against the HTTP API. The current token pair lives in a local session
// database between invocations; results are printed as JSON.
package cli
