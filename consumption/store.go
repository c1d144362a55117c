package consumption

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/jurisdiction"
)

// Mirror receives a copy of the serialized ledger after every persist. Used
// for off-host snapshot backups; failures are logged, never fatal.
type Mirror interface {
	WriteSnapshot(ctx context.Context, data []byte) error
}

// auditEntry is one line of the append-only audit log spanning both
// namespaces.
type auditEntry struct {
	TimestampMs int64                       `json:"timestampMs"`
	Namespace   string                      `json:"namespace"` // "gov-id" or "mint-request"
	Key         string                      `json:"key"`
	Entry       interfaces.ConsumptionEntry `json:"entry"`
}

// ledgerFile is the on-disk layout of the consumption ledger.
type ledgerFile struct {
	GovIDs       map[string]*interfaces.GovIDRecord       `json:"govIds"`
	MintRequests map[string]*interfaces.MintRequestRecord `json:"mintRequests"`
	AuditLog     []auditEntry                             `json:"auditLog"`
}

// Store is the durable consumption ledger. The backing file is exclusively
// owned by this process; concurrent instances against the same file are
// unsupported.
type Store struct {
	mu     sync.Mutex
	path   string
	pepper []byte
	log    *slog.Logger
	mirror Mirror
	now    func() time.Time

	data ledgerFile

	// persistSeq numbers ledger writes so mirror shipments can be ordered
	// without holding s.mu. Guarded by s.mu.
	persistSeq uint64

	// mirrorMu serializes mirror writes; mirrorSeq is the newest snapshot
	// shipped so far. Both guarded by mirrorMu, never by s.mu.
	mirrorMu  sync.Mutex
	mirrorSeq uint64

	// walletIndex maps normalized wallet -> gov-id keys, rebuilt on load.
	walletIndex map[interfaces.WalletAddress]map[string]struct{}
}

// NewStore opens (or creates) the consumption ledger at path. The pepper keys
// the gov-id hashes and must stay stable for the lifetime of the ledger;
// changing it orphans every existing record.
func NewStore(path string, pepper []byte, log *slog.Logger) (*Store, error) {
	if len(pepper) < 16 {
		return nil, fmt.Errorf("gov-id pepper must be at least 16 bytes, got %d", len(pepper))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	s := &Store{
		path:   path,
		pepper: pepper,
		log:    log,
		now:    time.Now,
		data: ledgerFile{
			GovIDs:       make(map[string]*interfaces.GovIDRecord),
			MintRequests: make(map[string]*interfaces.MintRequestRecord),
		},
		walletIndex: make(map[interfaces.WalletAddress]map[string]struct{}),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetMirror attaches a snapshot mirror. Must be called before the store is
// shared across goroutines.
func (s *Store) SetMirror(m Mirror) {
	s.mirror = m
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}

	var parsed ledgerFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to parse ledger file %s: %w", s.path, err)
	}
	if parsed.GovIDs == nil {
		parsed.GovIDs = make(map[string]*interfaces.GovIDRecord)
	}
	if parsed.MintRequests == nil {
		parsed.MintRequests = make(map[string]*interfaces.MintRequestRecord)
	}
	s.data = parsed

	// Rebuild the derived wallet index from record history.
	s.walletIndex = make(map[interfaces.WalletAddress]map[string]struct{})
	for key, rec := range s.data.GovIDs {
		for _, wallet := range rec.Wallets {
			s.indexWallet(interfaces.WalletAddress(wallet), key)
		}
	}

	s.log.Info("Loaded consumption ledger",
		slog.String("path", s.path),
		slog.Int("govIds", len(s.data.GovIDs)),
		slog.Int("mintRequests", len(s.data.MintRequests)))
	return nil
}

// persistLocked rewrites the ledger file and returns the serialized bytes
// with their sequence number for the mirror. Callers must hold s.mu; the
// mirror write itself happens outside the lock via shipSnapshot.
func (s *Store) persistLocked() ([]byte, uint64, error) {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to serialize ledger: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return nil, 0, fmt.Errorf("failed to write ledger temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return nil, 0, fmt.Errorf("failed to replace ledger file: %w", err)
	}

	s.persistSeq++
	return raw, s.persistSeq, nil
}

// shipSnapshot hands one serialized ledger to the mirror. Runs without s.mu
// held, so a slow mirror upload cannot stall guard checks or finalize. The
// sequence check keeps a delayed older snapshot from overwriting a newer
// one.
func (s *Store) shipSnapshot(raw []byte, seq uint64) {
	if s.mirror == nil || raw == nil {
		return
	}

	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()
	if seq <= s.mirrorSeq {
		return
	}
	s.mirrorSeq = seq

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.mirror.WriteSnapshot(ctx, raw); err != nil {
		s.log.Warn("Ledger snapshot mirror failed", "err", err)
	}
}

func (s *Store) indexWallet(wallet interfaces.WalletAddress, govIDKey string) {
	normalized := wallet.Normalized()
	if normalized == "" {
		return
	}
	keys, ok := s.walletIndex[normalized]
	if !ok {
		keys = make(map[string]struct{})
		s.walletIndex[normalized] = keys
	}
	keys[govIDKey] = struct{}{}
}

// GovIDKey derives the ledger key for a government identity. The raw id
// number never appears in the ledger, only this peppered hash. Unrecognized
// country labels fall back to a folded best-effort key; the second return
// reports that fallback.
func (s *Store) GovIDKey(country, idNumber string) (string, bool) {
	info, known := jurisdiction.Resolve(country)
	label := info.Alpha3
	if !known {
		label = jurisdiction.Fold(country)
	}

	h, err := blake2b.New256(s.pepper)
	if err != nil {
		// Only reachable with a pepper over 64 bytes, which NewStore permits;
		// fall back to an unkeyed hash over pepper||input.
		sum := blake2b.Sum256(append(append([]byte{}, s.pepper...), []byte(label+"|"+strings.TrimSpace(idNumber))...))
		return hex.EncodeToString(sum[:]), !known
	}
	h.Write([]byte(label))
	h.Write([]byte("|"))
	h.Write([]byte(strings.TrimSpace(idNumber)))
	return hex.EncodeToString(h.Sum(nil)), !known
}

// HasGovID reports whether a record exists for the identity.
func (s *Store) HasGovID(country, idNumber string) (bool, bool) {
	key, fallback := s.GovIDKey(country, idNumber)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data.GovIDs[key]
	return ok, fallback
}

// AppendGovID appends a history entry for the identity, creating the record
// on first sight, and persists before returning. Repeated appends for the
// same identity accumulate history.
func (s *Store) AppendGovID(country, idNumber string, entry interfaces.ConsumptionEntry) (*interfaces.GovIDRecord, error) {
	rec, raw, seq, err := s.appendGovID(country, idNumber, entry)
	if err != nil {
		return nil, err
	}
	s.shipSnapshot(raw, seq)
	return rec, nil
}

func (s *Store) appendGovID(country, idNumber string, entry interfaces.ConsumptionEntry) (*interfaces.GovIDRecord, []byte, uint64, error) {
	key, _ := s.GovIDKey(country, idNumber)
	now := s.now().UnixMilli()
	if entry.TimestampMs == 0 {
		entry.TimestampMs = now
	}
	countryLabel := canonicalCountry(country)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data.GovIDs[key]
	if !ok {
		rec = &interfaces.GovIDRecord{
			Country:     countryLabel,
			IDHash:      key,
			FirstSeenMs: now,
		}
		s.data.GovIDs[key] = rec
	}
	rec.UpdatedMs = now
	rec.History = append(rec.History, entry)
	rec.Latest = &rec.History[len(rec.History)-1]
	if entry.Wallet != "" {
		rec.Wallets = appendUnique(rec.Wallets, string(entry.Wallet.Normalized()))
		s.indexWallet(entry.Wallet, key)
	}

	s.data.AuditLog = append(s.data.AuditLog, auditEntry{
		TimestampMs: now,
		Namespace:   "gov-id",
		Key:         key,
		Entry:       entry,
	})

	raw, seq, err := s.persistLocked()
	if err != nil {
		return nil, nil, 0, err
	}
	return cloneGovID(rec), raw, seq, nil
}

// HasMintRequest reports whether the request id was ever recorded.
func (s *Store) HasMintRequest(requestID interfaces.ObjectID) bool {
	key := string(requestID.Normalized())

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data.MintRequests[key]
	return ok
}

// AppendMintRequest appends a history entry for the request id, creating the
// record on first sight, and persists before returning.
func (s *Store) AppendMintRequest(requestID interfaces.ObjectID, entry interfaces.ConsumptionEntry) (*interfaces.MintRequestRecord, error) {
	rec, raw, seq, err := s.appendMintRequest(requestID, entry)
	if err != nil {
		return nil, err
	}
	s.shipSnapshot(raw, seq)
	return rec, nil
}

func (s *Store) appendMintRequest(requestID interfaces.ObjectID, entry interfaces.ConsumptionEntry) (*interfaces.MintRequestRecord, []byte, uint64, error) {
	key := string(requestID.Normalized())
	if key == "" {
		return nil, nil, 0, fmt.Errorf("empty mint request id")
	}
	now := s.now().UnixMilli()
	if entry.TimestampMs == 0 {
		entry.TimestampMs = now
	}
	entry.RequestID = interfaces.ObjectID(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data.MintRequests[key]
	if !ok {
		rec = &interfaces.MintRequestRecord{
			RequestID:   interfaces.ObjectID(key),
			FirstSeenMs: now,
		}
		s.data.MintRequests[key] = rec
	}
	rec.UpdatedMs = now
	rec.History = append(rec.History, entry)
	rec.Latest = &rec.History[len(rec.History)-1]
	if entry.Wallet != "" {
		rec.Wallets = appendUnique(rec.Wallets, string(entry.Wallet.Normalized()))
	}

	s.data.AuditLog = append(s.data.AuditLog, auditEntry{
		TimestampMs: now,
		Namespace:   "mint-request",
		Key:         key,
		Entry:       entry,
	})

	raw, seq, err := s.persistLocked()
	if err != nil {
		return nil, nil, 0, err
	}
	return cloneMintRequest(rec), raw, seq, nil
}

// LatestAttestationFor returns the most recent attestation id recorded for a
// wallet, if any. This is the fast path for existing-attestation checks; the
// chain remains authoritative.
func (s *Store) LatestAttestationFor(wallet interfaces.WalletAddress) (interfaces.ObjectID, bool) {
	normalized := wallet.Normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	var best interfaces.ConsumptionEntry
	for key := range s.walletIndex[normalized] {
		rec := s.data.GovIDs[key]
		if rec == nil {
			continue
		}
		for _, entry := range rec.History {
			if entry.AttestationID != "" && entry.Wallet.Equal(normalized) && entry.TimestampMs >= best.TimestampMs {
				best = entry
			}
		}
	}
	if best.AttestationID == "" {
		return "", false
	}
	return best.AttestationID, true
}

// MintRequestRecords lists all consumed mint-request records, newest first.
// Admin surface only.
func (s *Store) MintRequestRecords() []*interfaces.MintRequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*interfaces.MintRequestRecord, 0, len(s.data.MintRequests))
	for _, rec := range s.data.MintRequests {
		out = append(out, cloneMintRequest(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedMs > out[j].UpdatedMs })
	return out
}

// RemoveGovID deletes the record for an identity. Admin-only escape hatch;
// the deletion itself is recorded in the audit log.
func (s *Store) RemoveGovID(country, idNumber string) (bool, error) {
	removed, raw, seq, err := s.removeGovID(country, idNumber)
	if err != nil {
		return removed, err
	}
	s.shipSnapshot(raw, seq)
	return removed, nil
}

func (s *Store) removeGovID(country, idNumber string) (bool, []byte, uint64, error) {
	key, _ := s.GovIDKey(country, idNumber)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data.GovIDs[key]
	if !ok {
		return false, nil, 0, nil
	}
	delete(s.data.GovIDs, key)
	for _, wallet := range rec.Wallets {
		delete(s.walletIndex[interfaces.WalletAddress(wallet)], key)
	}
	s.data.AuditLog = append(s.data.AuditLog, auditEntry{
		TimestampMs: s.now().UnixMilli(),
		Namespace:   "gov-id",
		Key:         key,
		Entry:       interfaces.ConsumptionEntry{EventType: "admin-removed", Source: "admin"},
	})

	raw, seq, err := s.persistLocked()
	if err != nil {
		return true, nil, 0, err
	}
	return true, raw, seq, nil
}

func canonicalCountry(country string) string {
	if info, ok := jurisdiction.Resolve(country); ok {
		return info.Alpha3
	}
	return jurisdiction.Fold(country)
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

func cloneGovID(rec *interfaces.GovIDRecord) *interfaces.GovIDRecord {
	out := *rec
	out.History = append([]interfaces.ConsumptionEntry(nil), rec.History...)
	out.Wallets = append([]string(nil), rec.Wallets...)
	if len(out.History) > 0 {
		out.Latest = &out.History[len(out.History)-1]
	}
	return &out
}

func cloneMintRequest(rec *interfaces.MintRequestRecord) *interfaces.MintRequestRecord {
	out := *rec
	out.History = append([]interfaces.ConsumptionEntry(nil), rec.History...)
	out.Wallets = append([]string(nil), rec.Wallets...)
	if len(out.History) > 0 {
		out.Latest = &out.History[len(out.History)-1]
	}
	return &out
}
