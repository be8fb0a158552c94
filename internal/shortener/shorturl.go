package shortener

import (
	"crypto/md5" //nolint:gosec // content key, not a security boundary
	"encoding/hex"
	"time"
)

// DefaultUserToken is used when a caller does not identify itself.
const DefaultUserToken = "generic-user-token"

// Code represents a short URL code.
type Code string

// ContentHash is the uniqueness key of a ShortURL within a namespace.
type ContentHash string

// ShortURL is one registered (domain, user token, long URL) combination.
// Code is empty until a code has been assigned and never changes afterwards.
type ShortURL struct {
	ID        int64
	Domain    string
	UserToken string
	Hash      ContentHash
	Code      Code
	LongURL   string
	CreatedAt time.Time
}

// Audit holds the resolution counter of a ShortURL.
type Audit struct {
	URLID int64
	Hits  int64
}

// HashContent computes the uniqueness key for a registration.
func HashContent(domain, userToken, longURL string) ContentHash {
	sum := md5.Sum([]byte(domain + userToken + longURL)) //nolint:gosec

	return ContentHash(hex.EncodeToString(sum[:]))
}
