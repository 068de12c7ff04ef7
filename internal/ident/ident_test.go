package ident

import (
	"strings"
	"testing"
)

func TestFriendlyShape(t *testing.T) {
	id := Friendly()
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		t.Fatalf("expected adjective-adjective-animal-suffix, got %q", id)
	}
	if len(parts[3]) != 8 {
		t.Fatalf("expected an 8-char suffix, got %q", parts[3])
	}
}

func TestGeneratorsUnique(t *testing.T) {
	for name, gen := range map[string]Generator{"friendly": Friendly, "uuid": UUID} {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			id := gen()
			if seen[id] {
				t.Fatalf("%s: id %q issued twice", name, id)
			}
			seen[id] = true
		}
	}
}

func TestFromScheme(t *testing.T) {
	if id := FromScheme("uuid")(); strings.Count(id, "-") != 4 {
		t.Fatalf("expected a uuid, got %q", id)
	}
	if id := FromScheme("friendly")(); strings.Count(id, "-") != 3 {
		t.Fatalf("expected a friendly id, got %q", id)
	}
}
