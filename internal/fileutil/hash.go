package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// HashContent fingerprints manifest content. A short content hash is
// enough to detect change-notification no-ops; it is never a security
// boundary.
func HashContent(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])[:16]
}

// HashFile fingerprints a file's current on-disk content.
func HashFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashContent(content), nil
}
