// Package session implements the ephemeral verification-session store.
//
// Sessions are created on a successful government-record lookup, mutated as
// verification steps complete, and deleted once a mint is finalized. They
// live in memory only; losing them on restart is acceptable because the
// consumption ledger, not the session, carries every durable guarantee.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// FaceMatchResult is the outcome of the optional face-match step, as reported
// by the external matcher.
type FaceMatchResult struct {
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
}

// PreparedData is the mint payload material assembled during verification,
// before a request id and recipient are known.
type PreparedData struct {
	Jurisdiction    uint16
	Level           interfaces.VerificationLevel
	Source          interfaces.VerifierSource
	VerifierVersion uint8
	NameHash        [32]byte
	IsHuman         bool
	IsOver18        bool
}

// Session is one in-flight verification. The prepared payload is only
// readable once the identity lookup has populated Record.
type Session struct {
	ID        string
	Country   string
	IDNumber  string
	PolicyID  string
	Record    *interfaces.IdentityRecord
	Prepared  *PreparedData
	FaceMatch *FaceMatchResult
	Wallet    interfaces.WalletAddress
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store holds sessions keyed by random id. All access is mutex-guarded; a
// background sweep expires sessions that idle past the TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	log      *slog.Logger
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a session store. A zero ttl disables expiry entirely.
func NewStore(ttl time.Duration, log *slog.Logger) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

// Close stops the expiry sweep.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			cutoff := s.now().Add(-s.ttl)
			s.mu.Lock()
			for id, sess := range s.sessions {
				if sess.UpdatedAt.Before(cutoff) {
					delete(s.sessions, id)
					s.log.Debug("Expired verification session", slog.String("sessionId", id))
				}
			}
			s.mu.Unlock()
		}
	}
}

// Create stores a new session for a looked-up identity and returns it.
func (s *Store) Create(record *interfaces.IdentityRecord, prepared *PreparedData, policyID string) *Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Country:   record.Country,
		IDNumber:  record.IDNumber,
		PolicyID:  policyID,
		Record:    record,
		Prepared:  prepared,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return copySession(sess)
}

// Get returns a copy of the session or ErrSessionNotFound if it is missing or
// expired.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.expired(sess) {
		return nil, interfaces.ErrSessionNotFound
	}
	return copySession(sess), nil
}

// Prepared returns the session's prepared payload data. It fails with
// ErrSessionNotFound when the session is absent or the identity-lookup step
// has not populated the record yet.
func (s *Store) Prepared(id string) (*PreparedData, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.expired(sess) || sess.Record == nil || sess.Prepared == nil {
		return nil, interfaces.ErrSessionNotFound
	}
	out := *sess.Prepared
	return &out, nil
}

// BindWallet associates the recipient wallet with the session.
func (s *Store) BindWallet(id string, wallet interfaces.WalletAddress) error {
	return s.mutate(id, func(sess *Session) {
		sess.Wallet = wallet.Normalized()
	})
}

// SetFaceMatch records the face-match outcome and upgrades the verification
// level when the match succeeded.
func (s *Store) SetFaceMatch(id string, result FaceMatchResult) error {
	return s.mutate(id, func(sess *Session) {
		sess.FaceMatch = &result
		if result.Matched && sess.Prepared != nil {
			sess.Prepared.Level = interfaces.LevelFaceMatch
		}
	})
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) mutate(id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return interfaces.ErrSessionNotFound
	}
	fn(sess)
	sess.UpdatedAt = s.now()
	return nil
}

func (s *Store) expired(sess *Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl
}

func copySession(sess *Session) *Session {
	out := *sess
	if sess.Prepared != nil {
		prepared := *sess.Prepared
		out.Prepared = &prepared
	}
	if sess.FaceMatch != nil {
		fm := *sess.FaceMatch
		out.FaceMatch = &fm
	}
	if sess.Record != nil {
		rec := *sess.Record
		out.Record = &rec
	}
	return &out
}
