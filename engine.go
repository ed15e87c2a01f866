package refreshguard

import (
	"context"
	"errors"
	"time"

	"github.com/S-nect1/refreshguard/internal"
	"github.com/S-nect1/refreshguard/token"
)

// Engine defines a public type used by refreshguard APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config   Config
	tokens   *token.Store
	pointers *token.PointerCache
	audit    *auditDispatcher
	metrics  *Metrics
}

// Close describes the close operation and its observable behavior.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Create mints a brand-new token family for the given user and returns its
// first token. The caller must already have authenticated the user; no
// identity validation happens here, and no other family is touched.
//
//	Performance: 1 Redis pipeline (record + family index) + 1 SET (pointer).
func (e *Engine) Create(ctx context.Context, userID string) (*token.Token, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	tokenID, err := internal.NewTokenID()
	if err != nil {
		return nil, err
	}

	ttl := e.config.Token.TTL
	now := time.Now()
	t := &token.Token{
		TokenID:   token.ID(tokenID),
		UserID:    userID,
		FamilyID:  token.FamilyID(internal.NewFamilyID()),
		State:     token.StateActive,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}

	if err := e.tokens.Save(ctx, t, ttl); err != nil {
		return nil, err
	}
	if err := e.pointers.Set(ctx, t.FamilyID, t.TokenID, ttl); err != nil {
		return nil, err
	}

	e.metricInc(MetricFamilyCreated)
	e.emitAudit(ctx, auditEventFamilyCreated, true, userID, t.FamilyID, t.TokenID, nil, nil)

	return t, nil
}

// Find looks a token up without rotating it. Returns [ErrTokenNotFound] when
// the record is absent or its TTL elapsed.
func (e *Engine) Find(ctx context.Context, tokenID token.ID) (*token.Token, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if err := internal.ValidateTokenID(string(tokenID)); err != nil {
		return nil, ErrTokenNotFound
	}

	t, err := e.tokens.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return t, nil
}

// Rotate exchanges a currently valid refresh token for a freshly minted child
// in the same family and retires the parent.
//
// Presenting a token that was already rotated away is the replay signature:
// the entire family is revoked before [ErrTokenReplayDetected] surfaces, so
// the caller can never observe the error without the cascade having
// completed. Tokens revoked for any other reason fail [ErrTokenInvalid]
// without cascading again.
//
// Retrying a rotation that already succeeded is safe: the family pointer
// short-circuit returns the already-created child instead of minting a
// duplicate.
func (e *Engine) Rotate(ctx context.Context, tokenID token.ID) (*token.Token, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()

	if err := internal.ValidateTokenID(string(tokenID)); err != nil {
		e.metricInc(MetricRotateInvalid)
		return nil, ErrTokenInvalid
	}

	rec, err := e.tokens.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			e.metricInc(MetricRotateInvalid)
			e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", tokenID, ErrTokenInvalid, func() map[string]string {
				return map[string]string{
					"reason": "not_found",
				}
			})
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	switch rec.State {
	case token.StateRotated:
		// A spent token re-presented: either an attacker replaying a
		// stolen credential or a stale copy racing its own successor.
		// Either way the lineage can no longer be trusted.
		if err := e.revokeFamily(ctx, rec.FamilyID); err != nil {
			return nil, err
		}
		e.metricInc(MetricReplayDetected)
		e.emitAudit(ctx, auditEventRotateReplayed, false, rec.UserID, rec.FamilyID, rec.TokenID, ErrTokenReplayDetected, nil)
		return nil, ErrTokenReplayDetected
	case token.StateRevoked:
		// revoked for an unrelated reason (logout, prior cascade); no
		// second cascade
		e.metricInc(MetricRotateInvalid)
		e.emitAudit(ctx, auditEventRotateInvalid, false, rec.UserID, rec.FamilyID, rec.TokenID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "revoked",
			}
		})
		return nil, ErrTokenInvalid
	}

	// Initialize the family pointer to the presented token if absent. A
	// pointer that already references a different token means a rotation
	// for this exact token completed and the caller is retrying.
	current, err := e.pointers.Init(ctx, rec.FamilyID, rec.TokenID, time.Until(time.Unix(rec.ExpiresAt, 0)))
	if err != nil {
		return nil, err
	}
	if current != rec.TokenID {
		return e.serveExistingChild(ctx, rec, current)
	}

	childID, err := internal.NewTokenID()
	if err != nil {
		return nil, err
	}

	ttl := e.config.Token.TTL
	now := time.Now()
	child := &token.Token{
		TokenID:   token.ID(childID),
		UserID:    rec.UserID,
		FamilyID:  rec.FamilyID,
		State:     token.StateActive,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}

	// The child must be durable before the parent carries a successor
	// reference: a crash in between fails safe toward re-authentication,
	// never toward a revoked parent pointing at a missing child.
	if err := e.tokens.Save(ctx, child, ttl); err != nil {
		return nil, err
	}

	conflict, err := e.tokens.MarkRotated(ctx, rec, child.TokenID)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			e.metricInc(MetricRotateInvalid)
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if conflict != nil {
		// Lost the parent CAS to a concurrent rotation. When the winner
		// already recorded its child, serve that child; our freshly
		// persisted record stays unreachable and ages out via TTL.
		if conflict.State == token.StateRotated && conflict.ReplacedBy != "" {
			return e.serveExistingChild(ctx, rec, conflict.ReplacedBy)
		}
		e.metricInc(MetricRotateInvalid)
		e.emitAudit(ctx, auditEventRotateInvalid, false, rec.UserID, rec.FamilyID, rec.TokenID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "concurrent_revocation",
			}
		})
		return nil, ErrTokenInvalid
	}

	if err := e.pointers.Set(ctx, rec.FamilyID, child.TokenID, ttl); err != nil {
		return nil, err
	}

	e.metricInc(MetricRotateSuccess)
	if e.metrics != nil {
		e.metrics.Observe(MetricRotateLatency, time.Since(start))
	}
	e.emitAudit(ctx, auditEventRotateSuccess, true, child.UserID, child.FamilyID, child.TokenID, nil, nil)

	return child, nil
}

// serveExistingChild resolves an idempotent retry: another rotation of the
// same parent already completed, so return its child instead of minting a
// duplicate. A missing child is a data-consistency fault.
func (e *Engine) serveExistingChild(ctx context.Context, parent *token.Token, childID token.ID) (*token.Token, error) {
	child, err := e.tokens.Get(ctx, childID)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			e.metricInc(MetricRotateInvalid)
			e.emitAudit(ctx, auditEventRotateInvalid, false, parent.UserID, parent.FamilyID, parent.TokenID, ErrTokenInvalid, func() map[string]string {
				return map[string]string{
					"reason": "successor_missing",
				}
			})
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	e.metricInc(MetricRetryServed)
	e.emitAudit(ctx, auditEventRetryServed, true, child.UserID, child.FamilyID, child.TokenID, nil, func() map[string]string {
		return map[string]string{
			"presented_token": string(parent.TokenID),
		}
	})

	return child, nil
}

// RevokeFamily kills every token of a family, including the current one, and
// removes the family pointer. Used internally by the replay guard and exposed
// for "log out everywhere" and security-incident response.
func (e *Engine) RevokeFamily(ctx context.Context, familyID token.FamilyID) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	if err := e.revokeFamily(ctx, familyID); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventFamilyRevoked, true, "", familyID, "", nil, nil)
	return nil
}

func (e *Engine) revokeFamily(ctx context.Context, familyID token.FamilyID) error {
	if err := e.tokens.RevokeFamily(ctx, familyID); err != nil {
		return err
	}
	if err := e.pointers.Delete(ctx, familyID); err != nil {
		return err
	}
	e.metricInc(MetricFamilyRevoked)
	return nil
}

// Ping returns a point-in-time storage availability check and latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.tokens == nil {
		return 0, ErrEngineNotReady
	}
	return e.tokens.Ping(ctx)
}
