package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/pkg/clock"
	"github.com/shandysiswandi/phoneverify/internal/pkg/hash"
	"github.com/shandysiswandi/phoneverify/internal/pkg/uid"
)

// DefaultMaxAttempts bounds verification tries per issued code.
const DefaultMaxAttempts = 5

type Config struct {
	Clock       clock.Clocker
	Hash        hash.Hash
	UID         uid.NumberID
	MaxAttempts int
}

// Registry holds at most one live code per phone in process memory. Every
// read-modify-write happens under a single mutex.
type Registry struct {
	mu      sync.Mutex
	records map[string]entity.Record

	clock       clock.Clocker
	hash        hash.Hash
	uid         uid.NumberID
	maxAttempts int
}

func New(cfg Config) *Registry {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	return &Registry{
		records:     make(map[string]entity.Record),
		clock:       cfg.Clock,
		hash:        cfg.Hash,
		uid:         cfg.UID,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Issue stores code for phone unless an unexpired record already exists, in
// which case it returns that record with entity.ErrPending. An expired record
// is replaced.
func (r *Registry) Issue(phone, code string, ttl time.Duration) (entity.Record, error) {
	digest, err := r.hash.Hash(code)
	if err != nil {
		return entity.Record{}, fmt.Errorf("registry: hash code: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if cur, ok := r.records[phone]; ok && !cur.Expired(now) {
		return cur, entity.ErrPending
	}

	rec := entity.Record{
		ID:        r.uid.Generate(),
		Phone:     phone,
		CodeHash:  string(digest),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	r.records[phone] = rec

	return rec, nil
}

// Pending returns the live record for phone, if any.
func (r *Registry) Pending(phone string) (entity.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[phone]
	if !ok || rec.Expired(r.clock.Now()) {
		return entity.Record{}, false
	}

	return rec, true
}

// Consume checks code against the record for phone. Expiry is checked before
// the attempt is counted; a record is removed on success, on expiry and once
// the attempt budget is exceeded.
func (r *Registry) Consume(phone, code string) entity.ConsumeResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[phone]
	if !ok {
		return entity.ConsumeResult{Outcome: entity.OutcomeNotFound}
	}

	if rec.Expired(r.clock.Now()) {
		delete(r.records, phone)
		return entity.ConsumeResult{Outcome: entity.OutcomeExpired, Record: rec}
	}

	rec.Attempts++
	if rec.Attempts > r.maxAttempts {
		delete(r.records, phone)
		return entity.ConsumeResult{Outcome: entity.OutcomeTooManyAttempts, Record: rec}
	}

	if r.hash.Verify(rec.CodeHash, code) {
		delete(r.records, phone)
		return entity.ConsumeResult{Outcome: entity.OutcomeOK, Record: rec}
	}

	r.records[phone] = rec

	return entity.ConsumeResult{Outcome: entity.OutcomeMismatch, Record: rec}
}

// Sweep drops every expired record and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	removed := 0
	for phone, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, phone)
			removed++
		}
	}

	return removed
}

// Len returns the number of stored records, expired ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.records)
}
