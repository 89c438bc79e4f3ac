package ir

import "crypto/sha256"

// Fingerprint returns the SHA-256 digest of p's canonical encoding.
// Identical programs in any source-order variation hash identically;
// this is stdlib-only by design (spec §3.2/§4.1 name SHA-256 directly,
// there is no ecosystem library to reach for here).
func Fingerprint(p *Program) ([32]byte, error) {
	canonical, err := Encode(p)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256([]byte(canonical)), nil
}
