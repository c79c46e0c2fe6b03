package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// InputFile is one vault or static file as seen by the signature.
type InputFile struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// BuildSignature captures every input of a build. Two builds with equal
// signatures produce identical output.
type BuildSignature struct {
	ConfigHash string      `json:"config_hash"`
	Head       string      `json:"head,omitempty"`
	Files      []InputFile `json:"files"`
	Version    string      `json:"version"`
}

// Hash returns a stable digest of the signature. Files are sorted first so
// discovery order does not matter.
func (s *BuildSignature) Hash() (string, error) {
	files := append([]InputFile(nil), s.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	for i := range files {
		files[i].ModTime = files[i].ModTime.UTC()
	}
	data, err := json.Marshal(BuildSignature{ConfigHash: s.ConfigHash, Head: s.Head, Files: files, Version: s.Version})
	if err != nil {
		return "", fmt.Errorf("marshal signature: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes returns the hex SHA-256 of data, used for configuration digests.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
