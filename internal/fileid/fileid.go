// Package fileid fingerprints files dropped into watched inbox directories.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const prefix = "file:"

// Fingerprint identifies one version of the file at path: the cleaned path, size and
// modification time. An unchanged file always yields the same fingerprint.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	key := fmt.Sprintf("%s|%d|%d", filepath.Clean(path), info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(key))
	return prefix + hex.EncodeToString(hash[:]), nil
}
