// Package kyc provides the government identity-record lookup consumed by the
// verification flow.
//
// The production system fronts a national identity database; this directory
// implements the same contract over seeded in-memory records, optionally
// loaded from a JSON file, which is what development and test environments
// run against.
package kyc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
	"github.com/suirifyprotocol/suirify-sub000/jurisdiction"
)

// recordFile is the JSON layout for loading directory records from disk.
type recordFile struct {
	Records []fileRecord `json:"records"`
}

type fileRecord struct {
	Country     string `json:"country"`
	IDNumber    string `json:"idNumber"`
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth"` // YYYY-MM-DD
	PortraitURL string `json:"portraitUrl,omitempty"`
}

// Directory is an in-memory identity record store implementing
// interfaces.IdentityDirectory.
type Directory struct {
	mu      sync.RWMutex
	records map[string]*interfaces.IdentityRecord
	log     *slog.Logger
}

// NewDirectory creates a directory pre-seeded with a small set of test
// identities.
func NewDirectory(log *slog.Logger) *Directory {
	d := &Directory{
		records: make(map[string]*interfaces.IdentityRecord),
		log:     log,
	}
	for _, rec := range seedRecords {
		d.put(rec)
	}
	return d
}

// LoadFile merges records from a JSON file into the directory.
func (d *Directory) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read identity records file: %w", err)
	}
	var parsed recordFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to parse identity records file %s: %w", path, err)
	}

	count := 0
	for _, fr := range parsed.Records {
		dob, err := time.Parse("2006-01-02", fr.DateOfBirth)
		if err != nil {
			return fmt.Errorf("record %s/%s has invalid dateOfBirth %q: %w", fr.Country, fr.IDNumber, fr.DateOfBirth, err)
		}
		d.put(&interfaces.IdentityRecord{
			Country:     fr.Country,
			IDNumber:    fr.IDNumber,
			FullName:    fr.FullName,
			DateOfBirth: dob,
			PortraitURL: fr.PortraitURL,
		})
		count++
	}
	d.log.Info("Loaded identity records", slog.String("path", path), slog.Int("count", count))
	return nil
}

// Lookup returns the record for (country, idNumber) or ErrIdentityNotFound.
func (d *Directory) Lookup(ctx context.Context, country, idNumber string) (*interfaces.IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	rec, ok := d.records[recordKey(country, idNumber)]
	d.mu.RUnlock()
	if !ok {
		return nil, interfaces.ErrIdentityNotFound
	}
	out := *rec
	return &out, nil
}

func (d *Directory) put(rec *interfaces.IdentityRecord) {
	d.mu.Lock()
	d.records[recordKey(rec.Country, rec.IDNumber)] = rec
	d.mu.Unlock()
}

func recordKey(country, idNumber string) string {
	label := jurisdiction.Fold(country)
	if info, ok := jurisdiction.Resolve(country); ok {
		label = info.Alpha3
	}
	return label + "|" + strings.TrimSpace(idNumber)
}

var seedRecords = []*interfaces.IdentityRecord{
	{
		Country:     "Nigeria",
		IDNumber:    "NGA-12345678901",
		FullName:    "Adaeze Obi",
		DateOfBirth: time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
	},
	{
		Country:     "Nigeria",
		IDNumber:    "NGA-20060101002",
		FullName:    "Chinedu Balogun",
		DateOfBirth: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
	},
	{
		Country:     "Ghana",
		IDNumber:    "GHA-55500011122",
		FullName:    "Kwame Mensah",
		DateOfBirth: time.Date(1985, 11, 3, 0, 0, 0, 0, time.UTC),
	},
	{
		Country:     "Kenya",
		IDNumber:    "KEN-90088877700",
		FullName:    "Wanjiru Kamau",
		DateOfBirth: time.Date(1998, 2, 27, 0, 0, 0, 0, time.UTC),
	},
}

var _ interfaces.IdentityDirectory = (*Directory)(nil)
