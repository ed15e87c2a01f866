package token

import (
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().Unix()
	original := &Token{
		UserID:     "user-42",
		FamilyID:   "fam-1",
		State:      StateRotated,
		ReplacedBy: "child-token",
		CreatedAt:  now,
		ExpiresAt:  now + 3600,
	}

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.UserID != original.UserID ||
		decoded.FamilyID != original.FamilyID ||
		decoded.State != original.State ||
		decoded.ReplacedBy != original.ReplacedBy ||
		decoded.CreatedAt != original.CreatedAt ||
		decoded.ExpiresAt != original.ExpiresAt {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, original)
	}
}

func TestEncodeStateByteOffset(t *testing.T) {
	tok := &Token{UserID: "u", FamilyID: "f", State: StateRevoked}

	data, err := Encode(tok)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// the rotation script reads the state without decoding, so the byte
	// position is part of the wire contract
	if data[1] != byte(StateRevoked) {
		t.Fatalf("state byte = %d, want %d at offset 1", data[1], StateRevoked)
	}
}

func TestEncodeRejectsSuccessorOnActive(t *testing.T) {
	tok := &Token{UserID: "u", FamilyID: "f", State: StateActive, ReplacedBy: "ghost"}
	if _, err := Encode(tok); err == nil {
		t.Fatal("active record with a successor must be rejected")
	}
}

func TestDecodeRejectsSuccessorOnRevoked(t *testing.T) {
	tok := &Token{UserID: "u", FamilyID: "f", State: StateRotated, ReplacedBy: "child"}
	data, err := Encode(tok)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// flip the rotated record to revoked without clearing the successor
	data[1] = byte(StateRevoked)

	if _, err := Decode(data); err == nil {
		t.Fatal("revoked record with a successor must be rejected")
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string][]byte{
		"empty":         {},
		"wrong version": {9, 0, 0, 0, 0},
		"bad state":     {1, 7, 0, 0, 0},
		"truncated":     {1, 0, 4, 'u'},
	}

	for name, data := range cases {
		if _, err := Decode(data); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}
