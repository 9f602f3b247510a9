package run

import (
	"strings"
	"testing"
)

func TestPipeErrors(t *testing.T) {
	tests := map[string]struct {
		cmdline string
		prefix  string
	}{
		"empty": {"", "exec: empty command"},
		"blank": {"   ", "exec: empty command"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := pipe(tc.cmdline, []byte("root\n"))
			if err == nil || !strings.HasPrefix(err.Error(), tc.prefix) {
				t.Fatalf("expected error starting with %q, got %v", tc.prefix, err)
			}
		})
	}
}
