package uuidutil

import (
	"strings"

	"github.com/google/uuid"
)

// New generates a new random UUID v4
func New() uuid.UUID {
	return uuid.New()
}

// IsValid checks if a string is a valid UUID format
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ShortID returns the first block of a fresh UUID, used to tag a run in logs.
func ShortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// ArtifactName builds a unique file name such as "no-results-<uuid>.png".
func ArtifactName(prefix, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return prefix + "-" + uuid.NewString()
	}
	return prefix + "-" + uuid.NewString() + "." + ext
}
