package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Syncer uploads changed secret files to a store and maintains the
// records file that makes subsequent runs incremental.
type Syncer struct {
	store       Store
	recordsPath string
	passphrase  string
	hostname    string
	logger      *slog.Logger
}

// SyncResult describes the outcome for one requested file.
type SyncResult struct {
	FileName string
	Uploaded bool
	Skipped  bool
	Err      error
}

func NewSyncer(store Store, recordsPath, passphrase, hostname string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if hostname == "" {
		if h, err := os.Hostname(); err == nil {
			hostname = h
		} else {
			hostname = "unknown_host"
		}
	}
	return &Syncer{
		store:       store,
		recordsPath: recordsPath,
		passphrase:  passphrase,
		hostname:    hostname,
		logger:      logger,
	}
}

// InitRecords creates an empty records file, refusing to clobber an
// existing one.
func InitRecords(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("records file %s already exists", path)
	}
	return SaveRecords(path, []Record{})
}

// Sync uploads each file whose content hash differs from its record for
// this host. Per-file failures are reported in the results, not fatal;
// the records file is rewritten once at the end.
func (s *Syncer) Sync(ctx context.Context, files []string) ([]SyncResult, error) {
	records, err := LoadRecords(s.recordsPath)
	if err != nil {
		return nil, err
	}

	// Index records owned by this host by file name.
	index := make(map[string]int)
	for i, rec := range records {
		if rec.Hostname == s.hostname {
			index[rec.FileName] = i
		}
	}

	results := make([]SyncResult, 0, len(files))
	changed := false
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := s.syncOne(ctx, file, records, index)
		if res.Uploaded {
			changed = true
			if i, ok := index[file]; ok {
				records[i] = res.record
			} else {
				records = append(records, res.record)
				index[file] = len(records) - 1
			}
		}
		results = append(results, res.SyncResult)
	}

	if changed {
		if err := SaveRecords(s.recordsPath, records); err != nil {
			return results, err
		}
	}
	return results, nil
}

type syncOutcome struct {
	SyncResult
	record Record
}

func (s *Syncer) syncOne(ctx context.Context, file string, records []Record, index map[string]int) syncOutcome {
	hash, size, err := HashFile(file)
	if err != nil {
		return syncOutcome{SyncResult: SyncResult{FileName: file, Err: err}}
	}

	if i, ok := index[file]; ok && records[i].Hash == hash {
		s.logger.Debug("secret unchanged", "file", file)
		return syncOutcome{SyncResult: SyncResult{FileName: file, Skipped: true}}
	}

	plaintext, err := os.ReadFile(file)
	if err != nil {
		return syncOutcome{SyncResult: SyncResult{FileName: file, Err: err}}
	}

	sealed, err := Seal(plaintext, s.passphrase)
	if err != nil {
		return syncOutcome{SyncResult: SyncResult{FileName: file, Err: err}}
	}

	if err := s.store.Put(ctx, file, sealed); err != nil {
		return syncOutcome{SyncResult: SyncResult{FileName: file, Err: err}}
	}

	s.logger.Info("secret uploaded", "file", file, "size", size)
	return syncOutcome{
		SyncResult: SyncResult{FileName: file, Uploaded: true},
		record:     NewRecord(file, hash, s.hostname, storeKind(s.store), size, int64(len(sealed))),
	}
}

// Verify fetches every record owned by this host back from the store,
// unseals it and checks the plaintext hash against the record.
func (s *Syncer) Verify(ctx context.Context) ([]SyncResult, error) {
	records, err := LoadRecords(s.recordsPath)
	if err != nil {
		return nil, err
	}

	var results []SyncResult
	for _, rec := range records {
		if rec.Hostname != s.hostname {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.verifyOne(ctx, rec))
	}
	return results, nil
}

func (s *Syncer) verifyOne(ctx context.Context, rec Record) SyncResult {
	sealed, err := s.store.Get(ctx, rec.FileName)
	if err != nil {
		return SyncResult{FileName: rec.FileName, Err: err}
	}

	plaintext, err := Open(sealed, s.passphrase)
	if err != nil {
		return SyncResult{FileName: rec.FileName, Err: err}
	}

	sum := sha256.Sum256(plaintext)
	if hex.EncodeToString(sum[:]) != rec.Hash {
		return SyncResult{FileName: rec.FileName, Err: fmt.Errorf("hash mismatch for %s", rec.FileName)}
	}
	return SyncResult{FileName: rec.FileName, Skipped: false, Uploaded: false}
}

func storeKind(s Store) string {
	switch s.(type) {
	case *VaultStore:
		return "vault"
	default:
		return "local"
	}
}
