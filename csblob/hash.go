package csblob

import (
	"crypto/sha1"
	"crypto/sha256"
	"hash"

	"github.com/blacktop/go-csblob/types"
)

// hashAlgorithm is the {SHA1, SHA256} strategy the two parallel code
// directories differ by: size, wire hashType tag, and digest constructor.
// Factoring it this way means CodeDirectorySlot builds the primary and
// alternate directories through the same code path (design note in
// SPEC_FULL.md, "Dual hash algorithms").
type hashAlgorithm struct {
	size    int
	cdType  types.HashType
	newHash func() hash.Hash
}

var (
	sha1Algorithm = hashAlgorithm{
		size:    types.HashSizeSHA1,
		cdType:  types.HashTypeSHA1,
		newHash: sha1.New,
	}
	sha256Algorithm = hashAlgorithm{
		size:    types.HashSizeSHA256,
		cdType:  types.HashTypeSHA256,
		newHash: sha256.New,
	}
)

func algorithmFor(alternate bool) hashAlgorithm {
	if alternate {
		return sha256Algorithm
	}
	return sha1Algorithm
}

func (a hashAlgorithm) sum(data []byte) []byte {
	h := a.newHash()
	h.Write(data)
	return h.Sum(nil)
}

// truncated returns digest's first n bytes, or digest itself if it is
// already no longer than n. Used to truncate a SHA-256 cdhash to the SHA-1
// cdhash length (20 bytes) for CMS transport.
func truncated(digest []byte, n int) []byte {
	if len(digest) <= n {
		return digest
	}
	return digest[:n]
}
