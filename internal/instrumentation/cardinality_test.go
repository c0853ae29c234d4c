package instrumentation

import "testing"

func TestRoutePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/mcp", "/mcp"},
		{"/picker/", "/picker"},
		{"/oauth/callback", "/oauth/callback"},
		{"/healthz/detailed", "/healthz/detailed"},
		{"/wp-login.php", "other"},
		{"/mcp/extra", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := RoutePath(tt.path); got != tt.want {
				t.Errorf("RoutePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
