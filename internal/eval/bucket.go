// Package eval implements flag and segment evaluation: clause operators,
// percentage rollout bucketing, and the per-flag decision algorithm that
// ties prerequisites, targets, and rules together into a single result.
package eval

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldcontext"
)

// bucketingFraction hashes key/salt/bucketBy into a float64 in [0, 1), the
// same bucketing contract every server-side and client-side SDK uses so
// that a user lands in the same rollout bucket regardless of which SDK
// evaluates the flag. This is a wire contract, not an implementation
// choice — SHA-1 and the 15-hex-digit truncation must match byte for byte.
func bucketingFraction(key, seed, salt, bucketBy string, bucketByValue string) float64 {
	var hashInput string
	if seed != "" {
		hashInput = seed + "." + bucketByValue
	} else {
		hashInput = key + "." + salt + "." + bucketByValue
	}

	sum := sha1.Sum([]byte(hashInput))
	hexDigest := hex.EncodeToString(sum[:])
	hash15 := hexDigest[:15]

	asInt, err := strconv.ParseUint(hash15, 16, 64)
	if err != nil {
		// Unreachable: hex.EncodeToString always yields valid hex digits.
		panic(fmt.Sprintf("eval: malformed hex digest %q: %v", hash15, err))
	}
	const longScale = 0xFFFFFFFFFFFFFFF
	return float64(asInt) / float64(longScale)
}

// bucketValueForUser resolves the attribute named by bucketBy (defaulting
// to "key") into the string bucketingFraction hashes against. ok is false
// when bucketBy names something other than "key" and the attribute can't
// be expressed as a bucketable string (missing, or a non-whole float,
// bool, array, object, or null value) — the caller treats that as bucket
// 0, not a fallback to the user's key.
func bucketValueForUser(user *ldcontext.User, bucketBy string) (string, bool) {
	if bucketBy == "" || bucketBy == "key" {
		return user.Key, true
	}
	return user.BucketableAttribute(bucketBy)
}

// Bucket computes the rollout bucket for a user against a flag/segment key,
// seed, salt and bucketBy attribute. seed, when non-empty, replaces
// key+salt in the hash input (used by experiments so that bucket
// assignment survives a flag being renamed). A bucketBy attribute that
// can't be resolved to a bucketable string yields bucket 0.
func Bucket(user *ldcontext.User, key string, seed *int, salt, bucketBy string) float64 {
	bucketByValue, ok := bucketValueForUser(user, bucketBy)
	if !ok {
		return 0
	}
	seedStr := ""
	if seed != nil {
		seedStr = strconv.Itoa(*seed)
	}
	return bucketingFraction(key, seedStr, salt, bucketBy, bucketByValue)
}
