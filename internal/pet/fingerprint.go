package pet

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes the fields of an item that influence enrichment output:
// breed, age, description, size, color and primary image.
//
// Fields are written in a fixed order, each prefixed by its name and
// terminated by a NUL byte, so the hash is independent of struct layout and
// stable across processes. Equal fingerprints mean cached enrichment may be
// reused; a changed fingerprint invalidates it.
func Fingerprint(item Item) string {
	fields := [...]struct {
		name  string
		value string
	}{
		{"breed", strings.ToLower(strings.TrimSpace(item.Breed))},
		{"age", strings.TrimSpace(item.Age)},
		{"description", strings.TrimSpace(item.Description)},
		{"size", strings.ToLower(strings.TrimSpace(string(item.Size)))},
		{"color", strings.ToLower(strings.TrimSpace(item.Color))},
		{"image", strings.TrimSpace(item.PrimaryImage())},
	}

	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(f.name))
		h.Write([]byte{'='})
		h.Write([]byte(f.value))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
