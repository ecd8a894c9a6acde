package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often Run purges expired revocations.
const DefaultCleanupInterval = 5 * time.Minute

// RevokedToken is one logged-out access token.
type RevokedToken struct {
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RevocationRepository persists revocations across restarts.
type RevocationRepository interface {
	Insert(ctx context.Context, t RevokedToken) error
	ListActive(ctx context.Context, now time.Time) ([]RevokedToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenRevocationStore keeps revoked JWT IDs in memory so the auth
// middleware can check them without a database round trip. When a
// repository is attached every revocation is also written through to it.
// Entries are dropped once the token would have expired anyway.
type TokenRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]RevokedToken
	repo    RevocationRepository
	now     func() time.Time
}

func NewTokenRevocationStore(repo RevocationRepository) *TokenRevocationStore {
	return &TokenRevocationStore{
		entries: make(map[string]RevokedToken),
		repo:    repo,
		now:     time.Now,
	}
}

// Load fills the cache with unexpired revocations from the repository.
func (s *TokenRevocationStore) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	tokens, err := s.repo.ListActive(ctx, s.now())
	if err != nil {
		return fmt.Errorf("load revoked tokens: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tokens {
		s.entries[t.JTI] = t
	}
	return nil
}

// Revoke marks jti as revoked until expiresAt.
func (s *TokenRevocationStore) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	if jti == "" {
		return fmt.Errorf("token id is required")
	}
	t := RevokedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt}
	if s.repo != nil {
		if err := s.repo.Insert(ctx, t); err != nil {
			return fmt.Errorf("persist revocation: %w", err)
		}
	}
	s.mu.Lock()
	s.entries[jti] = t
	s.mu.Unlock()
	return nil
}

func (s *TokenRevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[jti]
	return ok
}

// Count returns the number of currently revoked tokens.
func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ForUser lists the active revocations belonging to userID.
func (s *TokenRevocationStore) ForUser(userID string) []RevokedToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []RevokedToken
	for _, t := range s.entries {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// Run purges expired entries every interval until ctx is done.
func (s *TokenRevocationStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup(ctx)
		}
	}
}

// Cleanup removes revocations whose tokens have expired and returns how
// many were dropped from memory.
func (s *TokenRevocationStore) Cleanup(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for jti, t := range s.entries {
		if now.After(t.ExpiresAt) {
			delete(s.entries, jti)
			removed++
		}
	}
	s.mu.Unlock()

	if s.repo != nil {
		// best effort; the rows are harmless once expired
		_, _ = s.repo.DeleteExpired(ctx, now)
	}
	return removed
}
