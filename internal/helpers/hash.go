package helpers

import "github.com/cespare/xxhash/v2"

// Keys caches by content. Collisions are tolerated by callers that compare
// the stored text before trusting a hit.
func ContentHash(text string) uint64 {
	return xxhash.Sum64String(text)
}
