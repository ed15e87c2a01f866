package refreshguard

import "context"

// Identity is the minimal account record resolved by an [IdentityStore].
type Identity struct {
	ID     string
	Status uint8
}

// IdentityStore is implemented by the composing layer to resolve user
// accounts. The [Engine] never calls it: Create takes a user ID the caller
// already validated, and rotation works purely on stored records. It exists
// so HTTP/session layers can type their collaborators against this module.
type IdentityStore interface {
	GetUserByID(ctx context.Context, userID string) (Identity, error)
}

// AccessTokenIssuer mints and verifies the short-lived bearer credentials
// that accompany refresh tokens. The [Engine] never inspects access tokens;
// the composing layer pairs an issuer with the engine around login and
// refresh. The jwt sub-package provides a default implementation.
type AccessTokenIssuer interface {
	// Issue mints a signed access token for the given user.
	Issue(userID string) (string, error)
	// Verify parses a presented access token and returns the user ID it
	// was issued to.
	Verify(token string) (string, error)
}
