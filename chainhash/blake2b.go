package chainhash

import "golang.org/x/crypto/blake2b"

// Blake2b256 is the default HashFunc implementation used by tests and
// standalone tooling. Production header/commitment hashing is still an
// injected capability (see HashFunc) — this exists so the rest of the
// module has a concrete, deterministic hash to exercise against without
// pulling in the real consensus hash function, which is out of scope.
func Blake2b256(parts ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on a bad key, and we never pass one.
		panic(err)
	}
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
