package internal

import "testing"

func TestNewTokenIDValidates(t *testing.T) {
	id, err := NewTokenID()
	if err != nil {
		t.Fatalf("new token id failed: %v", err)
	}
	if err := ValidateTokenID(id); err != nil {
		t.Fatalf("fresh id rejected: %v", err)
	}
}

func TestNewTokenIDUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewTokenID()
		if err != nil {
			t.Fatalf("new token id failed: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate token id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestValidateTokenIDRejects(t *testing.T) {
	bad := []string{
		"",
		"short",
		"not!valid!base64!!",
		"AAAAAAAAAAAAAAAAAAAAAA", // decodes, but too few bytes
	}
	for _, id := range bad {
		if err := ValidateTokenID(id); err == nil {
			t.Errorf("%q: expected rejection", id)
		}
	}
}

func TestNewFamilyID(t *testing.T) {
	a := NewFamilyID()
	b := NewFamilyID()
	if a == "" || a == b {
		t.Fatalf("family ids must be non-empty and distinct: %q %q", a, b)
	}
}
