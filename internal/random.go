package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const tokenIDRawSize = 24

// NewTokenID returns a fresh opaque token identifier: 24 bytes of
// crypto/rand, base64url without padding. Identifiers are unguessable and
// never reused.
func NewTokenID() (string, error) {
	var raw [tokenIDRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewFamilyID returns a fresh family identifier. Families are long-lived and
// surface in audit trails, so a readable UUID beats raw bytes here.
func NewFamilyID() string {
	return uuid.NewString()
}

// ValidateTokenID rejects values that cannot have been produced by
// [NewTokenID] before they reach Redis as key material.
func ValidateTokenID(id string) error {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return err
	}
	if len(raw) != tokenIDRawSize {
		return errors.New("invalid token id size")
	}
	return nil
}
