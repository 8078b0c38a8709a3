package util

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
)

// Md5ThenHex is a quick hasher.
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// HashUUID derives a deterministic UUID from value, used to fingerprint a
// parsed instance by an identifier that's stable across re-parses of the
// same file (its Study Instance UID) without storing the identifier itself.
func HashUUID(value string) uuid.UUID {
	hash := md5.Sum([]byte(value))
	id, err := uuid.FromBytes(hash[:16])
	if err != nil {
		return uuid.Nil
	}
	return id
}
