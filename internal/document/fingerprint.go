package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Fingerprint returns the SHA-256 hex digest of raw bytes. It is the single
// source of truth for "is this the same content": the same bytes always
// produce the same fingerprint, and documents are deduplicated on it.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FingerprintText returns the SHA-256 hex digest of a chunk's text content,
// used to detect changed chunks on reprocessing.
func FingerprintText(text string) string {
	return Fingerprint([]byte(text))
}

// FingerprintFile streams a file through SHA-256 without loading it into
// memory. Used by the scanner, which may hash large trees each cycle.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
