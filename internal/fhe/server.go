package fhe

import "golang.org/x/crypto/blake2b"

// ServerFacade is the coordinator/worker's view of the protocol: it
// aggregates participant shares into the keys needed to evaluate the
// circuit, and never holds a secret key share of its own.
type ServerFacade struct {
	ring RingKind

	pk    []byte
	rp    []byte
	bsKey []byte
}

// NewServerFacade constructs an empty server facade for the given ring kind.
func NewServerFacade(ring RingKind) *ServerFacade {
	return &ServerFacade{ring: ring}
}

// AggregatePkShares combines N pk-shares into the aggregated public key.
// Order-insensitive: XOR is commutative and associative.
func (s *ServerFacade) AggregatePkShares(shares []PadSeed) []byte {
	buf := make([][]byte, len(shares))
	for i, sh := range shares {
		sh := sh
		buf[i] = sh[:]
	}
	s.pk = xorBytes(buf...)
	return s.pk
}

// AggregateRpKeyShares combines N ring-packing-key shares. Order-insensitive.
func (s *ServerFacade) AggregateRpKeyShares(shares []PadSeed) []byte {
	buf := make([][]byte, len(shares))
	for i, sh := range shares {
		sh := sh
		buf[i] = sh[:]
	}
	s.rp = xorBytes(buf...)
	return s.rp
}

// AggregateBsKeyShares combines bootstrap-key shares. Order-sensitive: the
// caller must pass shares pre-sorted by ascending share index, and this
// folds them via sequential hash chaining so that a different arrival/sort
// order produces a different (wrong) bootstrap key — mirroring the source
// system's requirement that bs-key shares be aggregated in ascending
// share_idx order regardless of submission order.
func (s *ServerFacade) AggregateBsKeyShares(orderedShares []PadSeed) []byte {
	acc := make([]byte, blake2b.Size256)
	for _, sh := range orderedShares {
		h, _ := blake2b.New256(nil)
		h.Write(acc)
		h.Write(sh[:])
		acc = h.Sum(nil)
	}
	s.bsKey = acc
	return s.bsKey
}

// PK returns the aggregated public key, or nil before WaitingForBootstrap.
func (s *ServerFacade) PK() []byte { return s.pk }

// RP returns the aggregated ring-packing key.
func (s *ServerFacade) RP() []byte { return s.rp }

// BSKey returns the aggregated bootstrap key, or nil before WaitingForArgument.
func (s *ServerFacade) BSKey() []byte { return s.bsKey }

// Restore builds a server facade directly from already-aggregated key
// material. Nothing in this module calls it: internal/store's rehydrate
// rebuilds server_state on load by re-running aggregation over the
// persisted shares.
func Restore(ring RingKind, pk, rp, bsKey []byte) *ServerFacade {
	return &ServerFacade{ring: ring, pk: pk, rp: rp, bsKey: bsKey}
}

// WrapBatchedCiphertext is a pass-through in this facade: a BatchedCiphertext
// is already the per-bit ciphertext collection the circuit evaluator
// operates over. Real FHE kernels perform a nontrivial ring-packing-to-LWE
// unpacking step here; that transformation is the opaque, out-of-scope
// capability this call stands in for.
func (s *ServerFacade) WrapBatchedCiphertext(batched BatchedCiphertext) []Ciphertext {
	return append([]Ciphertext(nil), batched...)
}
