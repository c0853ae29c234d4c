package instrumentation

import "strings"

// knownRoutes are the paths served by the HTTP transport. Anything else is
// reported as "other".
var knownRoutes = map[string]bool{
	"/":                 true,
	"/login":            true,
	"/oauth/callback":   true,
	"/picker":           true,
	"/mcp":              true,
	"/healthz":          true,
	"/readyz":           true,
	"/healthz/detailed": true,
	"/metrics":          true,
}

// RoutePath maps a request path onto a bounded label value.
//
// Example:
//
//	RoutePath("/mcp")          // "/mcp"
//	RoutePath("/picker/")      // "/picker"
//	RoutePath("/wp-login.php") // "other"
func RoutePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// Drive operation names used for metrics, spans and audit records.
const (
	OperationList   = "list"
	OperationSearch = "search"
	OperationGet    = "get"
	OperationExport = "export"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationCopy   = "copy"
)
