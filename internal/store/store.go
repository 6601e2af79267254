// Package store persists the account and usage documents with
// cross-process advisory locking and crash-safe atomic writes.
//
// The two documents are independent atomic units: writers lock per path,
// write to a temp file in the same directory, and rename into place, so a
// reader never observes a torn file. Reads are unlocked and best-effort —
// a read racing a write sees either the old or the new content.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xcawolfe-amzn/kiropool/internal/account"
)

const (
	accountsFile = "accounts.json"
	usageFile    = "usage.json"
)

// Logger lets the store report non-fatal problems (corrupt documents,
// lock-release failures) without depending on the CLI style package.
type Logger interface {
	Warn(format string, args ...interface{})
}

type discardLogger struct{}

func (discardLogger) Warn(string, ...interface{}) {}

// Store reads and writes the pool's two JSON documents under dir.
type Store struct {
	dir string
	log Logger
}

// New creates a store rooted at dir. A nil logger discards warnings.
func New(dir string, log Logger) *Store {
	if log == nil {
		log = discardLogger{}
	}
	return &Store{dir: dir, log: log}
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// AccountsPath returns the path of the account document.
func (s *Store) AccountsPath() string { return filepath.Join(s.dir, accountsFile) }

// UsagePath returns the path of the usage document.
func (s *Store) UsagePath() string { return filepath.Join(s.dir, usageFile) }

// LoadAccounts reads the account document without locking. A missing or
// unparsable file yields an empty document — storage corruption is
// recovered locally, never surfaced to the caller.
func (s *Store) LoadAccounts() *account.Document {
	doc := account.NewDocument()
	s.readJSON(s.AccountsPath(), doc, func() { *doc = *account.NewDocument() })
	if doc.Accounts == nil {
		doc.Accounts = []account.Record{}
	}
	return doc
}

// LoadUsage reads the usage document without locking, with the same
// recover-to-empty semantics as LoadAccounts.
func (s *Store) LoadUsage() *account.UsageDocument {
	doc := account.NewUsageDocument()
	s.readJSON(s.UsagePath(), doc, func() { *doc = *account.NewUsageDocument() })
	if doc.Usage == nil {
		doc.Usage = make(map[string]account.UsageRecord)
	}
	return doc
}

// readJSON fills v from path, invoking reset (and logging) on any failure
// so the caller always ends up with a usable default.
func (s *Store) readJSON(path string, v interface{}, reset func()) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		s.log.Warn("reading %s: %v (using empty document)", path, err)
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn("parsing %s: %v (using empty document)", path, err)
		reset()
	}
}

// SaveAccounts writes the account document under the per-path lock.
// Lock-acquisition exhaustion is returned to the caller; in-memory state
// is untouched so the save may be retried.
func (s *Store) SaveAccounts(doc *account.Document) error {
	doc.Version = account.CurrentVersion
	return s.WithLock(s.AccountsPath(), func() error {
		return s.writeAtomic(s.AccountsPath(), doc)
	})
}

// SaveUsage writes the usage document under the per-path lock.
func (s *Store) SaveUsage(doc *account.UsageDocument) error {
	doc.Version = account.CurrentVersion
	return s.WithLock(s.UsagePath(), func() error {
		return s.writeAtomic(s.UsagePath(), doc)
	})
}

// WithLock acquires the advisory lock for path, ensures the document
// exists, runs fn, then releases the lock in all cases. A release failure
// is logged, not propagated — fn's result stands.
func (s *Store) WithLock(path string, fn func() error) error {
	release, err := s.acquire(path + ".lock")
	if err != nil {
		return err
	}
	defer release()
	if err := s.ensureExists(path); err != nil {
		return err
	}
	return fn()
}

// ensureExists creates a default empty document at path if absent.
func (s *Store) ensureExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	switch path {
	case s.UsagePath():
		return s.writeAtomic(path, account.NewUsageDocument())
	default:
		return s.writeAtomic(path, account.NewDocument())
	}
}

// writeAtomic writes v as JSON to a uniquely named temp file in the target
// directory and renames it into place. Readers never see a partial write.
func (s *Store) writeAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting mode on %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
