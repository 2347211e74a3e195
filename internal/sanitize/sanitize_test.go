package sanitize

import (
	"strings"
	"testing"
)

func TestRunName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "passthrough", input: "two-body_v2.1", want: "two-body_v2.1"},
		{name: "spaces become hyphens", input: "figure eight orbit", want: "figure-eight-orbit"},
		{name: "collapse hyphens", input: "a -- b", want: "a-b"},
		{name: "collapse underscores", input: "a___b", want: "a_b"},
		{name: "strip control characters", input: "bin\x00ary\x1b[31m", want: "binary31m"},
		{name: "strip delete", input: "solar\x7fsystem", want: "solarsystem"},
		{name: "strip punctuation", input: "disk (n=200)!", want: "disk-n200"},
		{name: "trim separators", input: "  --cloud--  ", want: "cloud"},
		{name: "non-ascii dropped", input: "étoile", want: "toile"},
		{name: "only junk", input: "!!! ???", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RunName(tt.input); got != tt.want {
				t.Errorf("RunName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRunName_Truncates(t *testing.T) {
	input := strings.Repeat("a", MaxNameLength-1) + "-" + strings.Repeat("b", 10)
	got := RunName(input)
	if len(got) > MaxNameLength {
		t.Fatalf("len = %d, want <= %d", len(got), MaxNameLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated name %q ends with a separator", got)
	}
}
