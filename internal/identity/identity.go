// Package identity derives deterministic numeric identifiers for Senado
// floor votes. The Senado service exposes no numeric vote id, while the
// Cámara assigns small sequential integers (observed well under 100,000).
// Both chambers share one votaciones_sala table, so synthesized Senado ids
// are placed in the disjoint band [100,000,000, 1,000,000,000).
//
// The derivation must stay bit-exact across releases: re-running the
// pipeline over the same vote has to produce the same id so the header
// upsert stays idempotent.
package identity

import (
	"crypto/md5" //nolint:gosec // not used for security, only as a stable hash
	"math/big"
)

const (
	// VoteIDFloor is the lowest id this package will ever produce.
	VoteIDFloor = 100_000_000
	// voteIDBand is the width of the synthesized id range.
	voteIDBand = 900_000_000

	subjectPrefixLen = 50
)

// VoteID derives the identifier for a Senado floor vote from its bulletin
// number, the date text exactly as the source emits it (DD/MM/YYYY), and
// the vote subject. The subject contributes only its first 50 characters;
// no case or whitespace normalization is applied.
func VoteID(bulletin, date, subject string) int64 {
	runes := []rune(subject)
	if len(runes) > subjectPrefixLen {
		subject = string(runes[:subjectPrefixLen])
	}
	raw := bulletin + "-" + date + "-" + subject

	sum := md5.Sum([]byte(raw)) //nolint:gosec // stable hash, not security
	n := new(big.Int).SetBytes(sum[:])
	mod := new(big.Int).Mod(n, big.NewInt(voteIDBand))

	return VoteIDFloor + mod.Int64()
}

// InBand reports whether id falls inside the synthesized Senado range.
func InBand(id int64) bool {
	return id >= VoteIDFloor && id < VoteIDFloor+voteIDBand
}
