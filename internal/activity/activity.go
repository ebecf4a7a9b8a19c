// Package activity keeps the audit trail of user actions in
// logs/activity.csv.
package activity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Actions recorded by the application.
const (
	ActionTxnCreate   = "transaction.create"
	ActionTxnUpdate   = "transaction.update"
	ActionTxnDelete   = "transaction.delete"
	ActionTxnImport   = "transaction.import"
	ActionRatesSet    = "rates.set"
	ActionRatesUpdate = "rates.refresh"
	ActionUserCreate  = "user.create"
	ActionUserUpdate  = "user.update"
	ActionUserDelete  = "user.delete"
	ActionLogin       = "auth.login"
	ActionReport      = "report.export"
)

// Entry is one row in the activity log.
type Entry struct {
	Timestamp  time.Time
	UserID     string
	Action     string
	Details    string
	Ref        string // transaction or user the action touched
	CommitHash string
}

// Header is the CSV header for activity.csv.
const Header = "timestamp,user_id,action,details,ref,commit_hash"

const (
	numFields     = 6
	logDir        = "logs"
	logFile       = "logs/activity.csv"
	colTimestamp  = 0
	colUserID     = 1
	colAction     = 2
	colDetails    = 3
	colRef        = 4
	colCommitHash = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colUserID] = e.UserID
	row[colAction] = e.Action
	row[colDetails] = e.Details
	row[colRef] = e.Ref
	row[colCommitHash] = e.CommitHash
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp:  ts,
		UserID:     record[colUserID],
		Action:     record[colAction],
		Details:    record[colDetails],
		Ref:        record[colRef],
		CommitHash: record[colCommitHash],
	}, nil
}

// Log appends entries under a data directory. It is safe for concurrent use.
type Log struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

// NewLog creates a Log rooted at the data directory.
func NewLog(root string) *Log {
	return &Log{root: root, now: time.Now}
}

// Record stamps entries lacking a timestamp and appends them.
func (l *Log) Record(entries ...Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range entries {
		if entries[i].Timestamp.IsZero() {
			entries[i].Timestamp = l.now()
		}
	}
	return Append(l.root, entries)
}

// Entries returns every entry, oldest first.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Read(l.root)
}

// Recent returns up to n entries, newest first.
func (l *Log) Recent(n int) ([]Entry, error) {
	all, err := l.Entries()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Append writes entries to <root>/logs/activity.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <root>/logs/activity.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
