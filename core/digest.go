package core

import "crypto/sha1"

// Digest is a 20-byte SHA-1 digest, used both for piece hashes (§3.1) and
// for info-hash verification of assembled ut_metadata payloads (§4.3).
type Digest [20]byte

// SHA1 computes the Digest of a single buffer.
func SHA1(b []byte) Digest {
	return Digest(sha1.Sum(b))
}

// SHA1Chain computes the Digest over a chain of buffers, as if they were
// concatenated, without allocating the concatenation — used when a piece is
// assembled from several blocks (§4.1).
func SHA1Chain(chunks ...[]byte) Digest {
	h := sha1.New()
	for _, c := range chunks {
		h.Write(c)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Verify reports whether b hashes to the expected digest.
func (d Digest) Verify(b []byte) bool {
	return d == SHA1(b)
}

// VerifyChain reports whether the concatenation of chunks hashes to the
// expected digest.
func (d Digest) VerifyChain(chunks ...[]byte) bool {
	return d == SHA1Chain(chunks...)
}

// Bytes returns the raw digest bytes.
func (d Digest) Bytes() []byte {
	return d[:]
}
