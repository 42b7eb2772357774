package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SynthesizeID produces a deterministic identity for events whose source
// supplies no natural identifier. Deterministic IDs let the alert ledger
// recognize the same physical event across refresh cycles and process
// restarts, so re-fetching a bulletin never re-alerts. The raw date-time
// string is used as-is (not the epoch conversion) so a row that fails
// timezone math still gets a stable identity.
func SynthesizeID(source EventSource, rawTime string, lat, lon float64) string {
	input := fmt.Sprintf("%s|%s|%.4f|%.4f", source, strings.TrimSpace(rawTime), lat, lon)
	hash := sha256.Sum256([]byte(input))
	return strings.ToLower(string(source)) + "-" + hex.EncodeToString(hash[:8])
}
