package refreshguard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/S-nect1/refreshguard/token"
)

func TestRotateConcurrencySingleChild(t *testing.T) {
	engine, _, done := newTestEngine(t, rotationTestConfig())
	defer done()

	ctx := context.Background()

	parent, err := engine.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	type outcome struct {
		child *token.Token
		err   error
	}

	results := make(chan outcome, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			child, err := engine.Rotate(ctx, parent.TokenID)
			results <- outcome{child: child, err: err}
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	var childID token.ID
	for res := range results {
		if res.err == nil {
			success++
			if childID == "" {
				childID = res.child.TokenID
			} else if res.child.TokenID != childID {
				t.Fatalf("concurrent rotations produced two reachable children: %q and %q",
					childID, res.child.TokenID)
			}
			continue
		}
		if errors.Is(res.err, ErrTokenReplayDetected) || errors.Is(res.err, ErrTokenInvalid) {
			continue
		}
		t.Fatalf("unexpected rotate error: %v", res.err)
	}

	if success < 1 {
		t.Fatal("expected at least one rotation to succeed")
	}
	if childID == parent.TokenID {
		t.Fatal("child must not reuse the parent token id")
	}
}

func TestSequentialRotationsDistinctIDs(t *testing.T) {
	engine, _, done := newTestEngine(t, rotationTestConfig())
	defer done()

	ctx := context.Background()

	current, err := engine.Create(ctx, "bob")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	seen := map[token.ID]bool{current.TokenID: true}
	for i := 0; i < 8; i++ {
		next, err := engine.Rotate(ctx, current.TokenID)
		if err != nil {
			t.Fatalf("rotation %d failed: %v", i, err)
		}
		if seen[next.TokenID] {
			t.Fatalf("token id %q reused", next.TokenID)
		}
		seen[next.TokenID] = true
		current = next
	}
}
