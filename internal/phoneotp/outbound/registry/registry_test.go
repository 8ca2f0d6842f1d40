package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/pkg/clock"
	"github.com/shandysiswandi/phoneverify/internal/pkg/hash"
)

const testPhone = "989121958296"

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return s.n.Add(1) }

func newTestRegistry(maxAttempts int) (*Registry, *clock.Manual) {
	clk := clock.NewManual(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	return New(Config{
		Clock:       clk,
		Hash:        hash.NewHMACSHA256("test-secret"),
		UID:         &seqID{},
		MaxAttempts: maxAttempts,
	}), clk
}

func TestRegistry_IssueAndConsume(t *testing.T) {
	// Arrange
	reg, _ := newTestRegistry(5)

	// Act
	rec, err := reg.Issue(testPhone, "123456", 5*time.Minute)
	first := reg.Consume(testPhone, "123456")
	second := reg.Consume(testPhone, "123456")

	// Assert
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if rec.CodeHash == "123456" || rec.CodeHash == "" {
		t.Fatalf("code must be stored as a digest, got %q", rec.CodeHash)
	}
	if first.Outcome != entity.OutcomeOK {
		t.Fatalf("first Consume() = %s, want OK", first.Outcome)
	}
	if second.Outcome != entity.OutcomeNotFound {
		t.Fatalf("second Consume() = %s, want NOT_FOUND", second.Outcome)
	}
}

func TestRegistry_IssueWhilePending(t *testing.T) {
	// Arrange
	reg, clk := newTestRegistry(5)
	orig, _ := reg.Issue(testPhone, "111111", 5*time.Minute)
	clk.Advance(time.Minute)

	// Act
	cur, err := reg.Issue(testPhone, "222222", 5*time.Minute)

	// Assert
	if !errors.Is(err, entity.ErrPending) {
		t.Fatalf("Issue() error = %v, want ErrPending", err)
	}
	if cur.ID != orig.ID {
		t.Fatalf("pending record must not be replaced")
	}
	if got := reg.Consume(testPhone, "111111").Outcome; got != entity.OutcomeOK {
		t.Fatalf("original code must still verify, got %s", got)
	}
}

func TestRegistry_IssueReplacesExpired(t *testing.T) {
	reg, clk := newTestRegistry(5)
	_, _ = reg.Issue(testPhone, "111111", time.Minute)
	clk.Advance(time.Minute + time.Second)

	if _, err := reg.Issue(testPhone, "222222", time.Minute); err != nil {
		t.Fatalf("Issue() over expired record error = %v", err)
	}
	if got := reg.Consume(testPhone, "222222").Outcome; got != entity.OutcomeOK {
		t.Fatalf("new code must verify, got %s", got)
	}
}

func TestRegistry_AttemptBudget(t *testing.T) {
	// Arrange
	reg, _ := newTestRegistry(5)
	_, _ = reg.Issue(testPhone, "123456", 5*time.Minute)

	// Act
	var outcomes []entity.Outcome
	for range 6 {
		outcomes = append(outcomes, reg.Consume(testPhone, "000000").Outcome)
	}
	afterLockout := reg.Consume(testPhone, "123456").Outcome

	// Assert
	for i := range 5 {
		if outcomes[i] != entity.OutcomeMismatch {
			t.Fatalf("attempt %d = %s, want MISMATCH", i+1, outcomes[i])
		}
	}
	if outcomes[5] != entity.OutcomeTooManyAttempts {
		t.Fatalf("attempt 6 = %s, want TOO_MANY_ATTEMPTS", outcomes[5])
	}
	if afterLockout != entity.OutcomeNotFound {
		t.Fatalf("correct code after lockout = %s, want NOT_FOUND", afterLockout)
	}
}

func TestRegistry_Expired(t *testing.T) {
	// Arrange
	reg, clk := newTestRegistry(5)
	_, _ = reg.Issue(testPhone, "123456", 5*time.Minute)

	// Act
	clk.Advance(5 * time.Minute)
	atDeadline, live := reg.Pending(testPhone)
	clk.Advance(time.Second)
	_, liveAfter := reg.Pending(testPhone)
	res := reg.Consume(testPhone, "123456")

	// Assert
	if !live || atDeadline.Attempts != 0 {
		t.Fatalf("record must be live at its deadline")
	}
	if liveAfter {
		t.Fatalf("record must not be pending after its deadline")
	}
	if res.Outcome != entity.OutcomeExpired {
		t.Fatalf("Consume() = %s, want EXPIRED", res.Outcome)
	}
	if reg.Len() != 0 {
		t.Fatalf("expired record must be removed on detection")
	}
}

func TestRegistry_Sweep(t *testing.T) {
	// Arrange
	reg, clk := newTestRegistry(5)
	_, _ = reg.Issue("981", "111111", time.Minute)
	_, _ = reg.Issue("982", "222222", 10*time.Minute)

	// Act
	clk.Advance(2 * time.Minute)
	removed := reg.Sweep()

	// Assert
	if removed != 1 || reg.Len() != 1 {
		t.Fatalf("Sweep() removed %d, left %d; want 1 and 1", removed, reg.Len())
	}
	if _, ok := reg.Pending("982"); !ok {
		t.Fatalf("unexpired record must survive sweep")
	}
}

func TestRegistry_ConcurrentIssue(t *testing.T) {
	// Arrange
	reg, _ := newTestRegistry(5)
	var (
		wg      sync.WaitGroup
		issued  atomic.Int32
		pending atomic.Int32
	)

	// Act
	for range 50 {
		wg.Go(func() {
			_, err := reg.Issue(testPhone, "123456", time.Minute)
			switch {
			case err == nil:
				issued.Add(1)
			case errors.Is(err, entity.ErrPending):
				pending.Add(1)
			}
		})
	}
	wg.Wait()

	// Assert
	if issued.Load() != 1 || pending.Load() != 49 {
		t.Fatalf("issued=%d pending=%d, want 1 and 49", issued.Load(), pending.Load())
	}
}

func TestRegistry_ConcurrentConsumeSingleWinner(t *testing.T) {
	// Arrange
	reg, _ := newTestRegistry(100)
	_, _ = reg.Issue(testPhone, "123456", time.Minute)
	var (
		wg  sync.WaitGroup
		oks atomic.Int32
	)

	// Act
	for range 50 {
		wg.Go(func() {
			if reg.Consume(testPhone, "123456").Outcome == entity.OutcomeOK {
				oks.Add(1)
			}
		})
	}
	wg.Wait()

	// Assert
	if oks.Load() != 1 {
		t.Fatalf("exactly one verification may succeed, got %d", oks.Load())
	}
}
