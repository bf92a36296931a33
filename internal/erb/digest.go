package erb

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest fingerprints a projection. It is only used to tell whether an
// analyzer changed anything.
func Digest(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
