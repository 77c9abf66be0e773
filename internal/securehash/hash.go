// Package securehash computes the HMAC used by secure mode: proof that a
// user key shown to client-side code was generated by someone holding the
// SDK key, without exposing the SDK key itself.
package securehash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns hex(HMAC-SHA256(sdkKey, userKey)). Client-side SDKs compare
// this against a value they compute the same way to confirm a user key
// wasn't forged in transit.
func Hash(sdkKey, userKey string) string {
	mac := hmac.New(sha256.New, []byte(sdkKey))
	mac.Write([]byte(userKey))
	return hex.EncodeToString(mac.Sum(nil))
}
