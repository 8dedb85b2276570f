package classifier

import (
	"crypto/sha256"
	"encoding/hex"
)

// TranscriptKey is the hex SHA-256 of a transcript, shared by the prediction caches.
func TranscriptKey(transcript string) string {
	sum := sha256.Sum256([]byte(transcript))
	return hex.EncodeToString(sum[:])
}
