package mdtl

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText computes the SHA-256 hash of a document.
// Unlike short UI strings, whitespace is significant in markdown, so the
// text is hashed as-is.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates a cache key from a text hash and a language pair.
func CacheKey(hash, sourceLang, targetLang string) string {
	return hash + ":" + sourceLang + ":" + targetLang
}

// CacheKeyExtended generates a cache key that also includes the backend name.
// Use this when translations from different backends must not be mixed.
func CacheKeyExtended(hash, sourceLang, targetLang, backend string) string {
	return CacheKey(hash, sourceLang, targetLang) + ":" + backend
}
