// Package journal persists the outcome of applied reconciliation runs. It
// deliberately stores results only, never remote record state: every run
// reads the zone fresh from the service.
package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/dnstools/hosttech-dns-sync/metrics"
)

const runPrefix = "run:"

// Entry records one applied reconciliation run for a record group.
type Entry struct {
	Zone    string `json:"zone"`
	Record  string `json:"record"`
	Type    string `json:"type"`
	Action  string `json:"action"`
	At      int64  `json:"at"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
	Failed  int    `json:"failed"`
}

type Journal struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func New(path string, m *metrics.Metrics) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Journal{db: db, metrics: m}, nil
}

// Append stores an entry keyed by timestamp and sequence so iteration order
// is chronological.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		j.metrics.IncJournalWrite(false)
		return err
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		key := fmt.Sprintf("%s%020d:%s:%s", runPrefix, entry.At, entry.Record, entry.Type)
		return txn.Set([]byte(key), data)
	})
	j.metrics.IncJournalWrite(err == nil)
	return err
}

// List returns the most recent entries, newest first. A limit of zero means
// all entries.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runPrefix)
		// Reverse iteration starts past the last key with the prefix.
		seek := append(append([]byte(nil), prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

func (j *Journal) Close() error {
	return j.db.Close()
}
