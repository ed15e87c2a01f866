package token

// ID is an opaque refresh-token identifier. It is the Redis record key and
// must never be reused once issued.
type ID string

// FamilyID identifies the lineage of tokens descending from a single login.
// It is assigned at family creation and copied unchanged to every descendant.
type FamilyID string

// State is the lifecycle state of a token record. StateRotated and
// StateRevoked are terminal.
type State uint8

const (
	// StateActive is the sole non-terminal state; at most one record per
	// family holds it under correct non-racing operation.
	StateActive State = iota
	// StateRotated marks a record superseded by a child. Re-presenting a
	// rotated token is the replay signature.
	StateRotated
	// StateRevoked marks a record killed by logout or a replay cascade.
	StateRevoked
)

// Token defines a public type used by refreshguard APIs.
//
// Token instances are written once at creation, mutated exactly once when the
// record leaves StateActive, and never mutated again. Expiry is owned by the
// store TTL.
type Token struct {
	TokenID  ID
	UserID   string
	FamilyID FamilyID

	State      State
	ReplacedBy ID // set only when State == StateRotated

	CreatedAt int64
	ExpiresAt int64
}

// Active reports whether the record may still be rotated.
func (t *Token) Active() bool {
	return t != nil && t.State == StateActive
}

// Revoked reports whether the record was killed by logout or a replay
// cascade.
func (t *Token) Revoked() bool {
	return t != nil && t.State == StateRevoked
}
