// Package app wires the analytics server together and manages its lifecycle.
//
// NewApplication loads nothing by itself: the caller passes the resolved
// configuration. Components are created in dependency order:
//
//  1. Logger and OpenTelemetry providers with the application metrics
//  2. WebSocket hub, analytics service and health service
//  3. The configured source dataset, when one is set
//  4. Router, middleware chain and HTTP server
//
// Run serves until SIGINT or SIGTERM and then shuts down the server, the
// hub, the analysis cache and the telemetry providers in that order. The
// package never calls os.Exit; errors are returned to main.
package app
