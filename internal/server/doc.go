// Package server holds the state shared by the MCP tools and the http
// transport of drivepicker.
//
// # Key Components
//
// ServerContext carries the transport mode, the credential store, the
// picker settings and the instrumentation handles. It hands out Drive
// clients authorized by the stored credential and, in stdio mode, runs the
// one-shot loopback listener that completes a Google sign-in.
//
// WebServer is the http transport. One listener serves:
//   - /: status page
//   - /login: redirect to Google consent with a single-use state
//   - /oauth/callback: state check and code exchange
//   - /picker: Google Picker page for granting access to existing files
//   - /mcp: MCP streamable HTTP endpoint
//   - /healthz, /readyz, /healthz/detailed: probes
//
// MetricsServer exposes the Prometheus registry on its own port.
//
// # Security
//
// OAuth state values are random, single-use and expire with the callback
// timeout. HTML pages are sent with a restrictive Content-Security-Policy,
// nosniff, DENY framing and no-store caching. Access tokens only leave the
// process inside the picker page, which requires a stored credential.
package server
