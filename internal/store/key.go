package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives the cache key for one (operation, project, question) triple.
// The digest covers all three inputs with separators, so identical questions
// for different projects can never collide; research for one project is
// never served to another.
func Key(operation, project, question string) string {
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write([]byte(project))
	h.Write([]byte{0})
	h.Write([]byte(question))
	return hex.EncodeToString(h.Sum(nil))
}
