package id

import (
	"strings"
	"testing"
)

func TestNewIDShape(t *testing.T) {
	t.Parallel()

	generated, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(generated) != 26 {
		t.Fatalf("id length = %d, want 26", len(generated))
	}
	if generated != strings.ToLower(generated) {
		t.Fatalf("id %q is not lowercase", generated)
	}
	if strings.ContainsAny(generated, "=/+") {
		t.Fatalf("id %q contains unsafe characters", generated)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		generated, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if _, duplicate := seen[generated]; duplicate {
			t.Fatalf("duplicate id %q after %d generations", generated, i)
		}
		seen[generated] = struct{}{}
	}
}
