// ABOUTME: Tests for version constants
// ABOUTME: Ensures version information is properly defined
package version

import (
	"strings"
	"testing"
)

func TestConstantsDefined(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Version", Version},
		{"Product", Product},
		{"Manufacturer", Manufacturer},
		{"PlayerName", PlayerName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				t.Errorf("%s should not be empty", tt.name)
			}
			if len(tt.value) > 100 {
				t.Errorf("%s is unreasonably long", tt.name)
			}
			for _, placeholder := range []string{"TODO", "FIXME", "XXX", "placeholder"} {
				if tt.value == placeholder {
					t.Errorf("%s should not be placeholder value: %s", tt.name, placeholder)
				}
			}
		})
	}
}

func TestPlayerNameHasNoSpaces(t *testing.T) {
	// Passed as a single argument to the pause helper
	if strings.ContainsAny(PlayerName, " \t") {
		t.Errorf("PlayerName %q must be a single word", PlayerName)
	}
}

func TestString(t *testing.T) {
	if got := String(); got != "alsasink 0.1.0" {
		t.Errorf("expected %q, got %q", "alsasink 0.1.0", got)
	}
}
