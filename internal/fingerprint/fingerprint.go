// Package fingerprint computes content fingerprints over audio file bytes.
// The fingerprint is a SHA-256 digest of the raw file contents, so it is
// deterministic regardless of filename, tags or timestamps.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"cratekeeper/internal/constants"
)

const chunkSize = 32 * 1024

// Compute reads r in fixed-size chunks and returns the lowercase hex SHA-256
// digest of its bytes.
func Compute(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("hash write: %w", werr)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("read: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeFile streams the file at path through Compute.
func ComputeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Compute(f)
}

// Tag renders a digest as a catalog tag. The digest is truncated because
// Eagle tags are short display strings; the full digest lives only in the
// metadata store.
func Tag(digest string) string {
	d := strings.ToLower(digest)
	if len(d) > constants.FingerprintTagLen {
		d = d[:constants.FingerprintTagLen]
	}
	return constants.FingerprintTagPrefix + d
}

// ParseTag extracts the truncated digest from a fingerprint tag. Returns
// false if the tag does not carry a fingerprint.
func ParseTag(tag string) (string, bool) {
	if !strings.HasPrefix(tag, constants.FingerprintTagPrefix) {
		return "", false
	}
	v := strings.TrimPrefix(tag, constants.FingerprintTagPrefix)
	if v == "" {
		return "", false
	}
	return strings.ToLower(v), true
}

// Matches reports whether a stored tag digest and a full digest identify the
// same content, comparing on the stored (possibly truncated) length.
func Matches(tagDigest, fullDigest string) bool {
	if tagDigest == "" || fullDigest == "" {
		return false
	}
	tagDigest = strings.ToLower(tagDigest)
	fullDigest = strings.ToLower(fullDigest)
	if len(fullDigest) > len(tagDigest) {
		fullDigest = fullDigest[:len(tagDigest)]
	}
	return tagDigest == fullDigest
}
