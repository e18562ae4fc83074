package s3

import "testing"

func TestHasScheme(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"http://localhost:9000", true},
		{"https://minio.internal", true},
		{"http://a", true},
		{"https://", true},
		{"localhost:9000", false},
		{"minio.internal", false},
		{"httpserver.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := hasScheme(tt.endpoint); got != tt.want {
			t.Errorf("hasScheme(%q) = %v, want %v", tt.endpoint, got, tt.want)
		}
	}
}
