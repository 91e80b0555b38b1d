package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint computes a stable hash for a finding. Lines are left out when
// the entity is known so that unrelated edits above it keep the hash.
func Fingerprint(ruleID, file, entity string, line int, context string) string {
	h := sha256.New()
	if entity != "" {
		fmt.Fprintf(h, "%s|%s|%s|%s", ruleID, file, entity, context)
	} else {
		fmt.Fprintf(h, "%s|%s|%d|%s", ruleID, file, line, context)
	}
	return hex.EncodeToString(h.Sum(nil))
}
