//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	refreshguard "github.com/S-nect1/refreshguard"
	"github.com/S-nect1/refreshguard/jwt"
)

type memoryIdentityStore struct {
	users map[string]refreshguard.Identity
}

func (s *memoryIdentityStore) GetUserByID(_ context.Context, userID string) (refreshguard.Identity, error) {
	user, ok := s.users[userID]
	if !ok {
		return refreshguard.Identity{}, errors.New("unknown user")
	}
	return user, nil
}

func newIntegrationStack(t *testing.T) (*refreshguard.Engine, refreshguard.IdentityStore, refreshguard.AccessTokenIssuer, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	engine, err := refreshguard.New().WithRedis(rdb).Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	identities := &memoryIdentityStore{
		users: map[string]refreshguard.Identity{
			"u1": {ID: "u1", Status: 0},
		},
	}

	issuer, err := jwt.NewIssuer(jwt.Config{
		AccessTTL:     time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("integration-test-signing-secret-1"),
		Issuer:        "refreshguard-it",
	})
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	return engine, identities, issuer, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

// End-to-end pass through the composing layer's usual sequence: resolve the
// user, mint the refresh and access pair, refresh it once, then replay the
// spent token and confirm the whole family dies.
func TestLoginRefreshReplayFlow(t *testing.T) {
	engine, identities, issuer, done := newIntegrationStack(t)
	defer done()

	ctx := context.Background()

	user, err := identities.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("identity lookup failed: %v", err)
	}

	refresh, err := engine.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	access, err := issuer.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if uid, err := issuer.Verify(access); err != nil || uid != user.ID {
		t.Fatalf("access verify = (%q, %v), want (u1, nil)", uid, err)
	}

	// refresh: rotate and mint a new access token for the rotated-to user
	next, err := engine.Rotate(ctx, refresh.TokenID)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if _, err := issuer.Issue(next.UserID); err != nil {
		t.Fatalf("issue after rotate failed: %v", err)
	}

	// a replay of the spent token burns the family
	if _, err := engine.Rotate(ctx, refresh.TokenID); !errors.Is(err, refreshguard.ErrTokenReplayDetected) {
		t.Fatalf("expected replay detection, got %v", err)
	}
	if _, err := engine.Rotate(ctx, next.TokenID); !errors.Is(err, refreshguard.ErrTokenInvalid) {
		t.Fatalf("expected revoked child to be invalid, got %v", err)
	}
}

func TestLogoutRevokesFamily(t *testing.T) {
	engine, _, _, done := newIntegrationStack(t)
	defer done()

	ctx := context.Background()

	refresh, err := engine.Create(ctx, "u1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := engine.RevokeFamily(ctx, refresh.FamilyID); err != nil {
		t.Fatalf("revoke family failed: %v", err)
	}

	if _, err := engine.Rotate(ctx, refresh.TokenID); !errors.Is(err, refreshguard.ErrTokenInvalid) {
		t.Fatalf("expected revoked token to be invalid, got %v", err)
	}
}

func TestPingReportsHealthy(t *testing.T) {
	engine, _, _, done := newIntegrationStack(t)
	defer done()

	latency, err := engine.Ping(context.Background())
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if latency < 0 {
		t.Fatalf("negative latency %v", latency)
	}
}
