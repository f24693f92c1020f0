// Package secrets synchronizes local secret files to a store, keeping a
// JSON record file of what was uploaded so unchanged files are skipped.
package secrets

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

const hashAlgo = "sha256"

// Record is one entry in the records file. Field names follow the
// historical upload-journal format so existing files keep working.
type Record struct {
	FileName    string `json:"file_nm"`
	Hash        string `json:"hash"`
	HashAlgo    string `json:"hash_algo"`
	InsertedAt  string `json:"ins_ts"`
	Hostname    string `json:"hostname"`
	FileSize    int64  `json:"file_size"`
	SealedSize  int64  `json:"encoded_size"`
	Destination string `json:"destination"`
}

// NewRecord fills the required fields for a freshly synced file.
func NewRecord(fileName, hash, hostname, destination string, fileSize, sealedSize int64) Record {
	return Record{
		FileName:    fileName,
		Hash:        hash,
		HashAlgo:    hashAlgo,
		InsertedAt:  time.Now().UTC().Format(time.RFC3339),
		Hostname:    hostname,
		FileSize:    fileSize,
		SealedSize:  sealedSize,
		Destination: destination,
	}
}

// LoadRecords reads the records file. A missing file yields an empty
// slice so first runs need no setup beyond `secrets init`.
func LoadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records file %s: %w", path, err)
	}
	for i := range records {
		if records[i].HashAlgo == "" {
			records[i].HashAlgo = hashAlgo
		}
	}
	return records, nil
}

// SaveRecords writes the records file atomically via a rename.
func SaveRecords(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write records file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace records file: %w", err)
	}
	return nil
}

// HashFile returns the hex sha256 digest and size of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
