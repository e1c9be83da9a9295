package fhe

import (
	"golang.org/x/crypto/blake2b"
)

// Hierarchical seed derivation: every generated share is a deterministic
// function of (seed, share index, derivation path). The path tags below
// keep the five sub-derivations distinct ([0,0] for sk, [0,1] for sk_ks,
// [1,0] for the pk-share, [1,1,0] for the rp-key-share and [1,1,1] for the
// bs-key-share) so that, given the same seed and share
// index, every artifact is bitwise identical across runs and across
// implementations.
var (
	pathSK      = []byte{0, 0}
	pathSKKS    = []byte{0, 1}
	pathPKShare = []byte{1, 0}
	pathRPShare = []byte{1, 1, 0}
	pathBSShare = []byte{1, 1, 1}
)

func derive(seed Seed, shareIdx int, path []byte, extra ...[]byte) PadSeed {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("fhe: blake2b unavailable: " + err.Error())
	}
	h.Write(seed[:])
	h.Write([]byte{byte(shareIdx >> 24), byte(shareIdx >> 16), byte(shareIdx >> 8), byte(shareIdx)})
	h.Write(path)
	for _, e := range extra {
		h.Write(e)
	}
	var out PadSeed
	copy(out[:], h.Sum(nil))
	return out
}

func deriveSK(seed Seed, shareIdx int) PadSeed   { return derive(seed, shareIdx, pathSK) }
func deriveSKKS(seed Seed, shareIdx int) PadSeed { return derive(seed, shareIdx, pathSKKS) }

// CRSSeed pads or truncates a configuration string to the 32-byte CRS seed
// form used throughout the wire format: strings shorter than 32 bytes are
// right-padded with zeros, strings longer are truncated.
func CRSSeed(s string) Seed {
	var out Seed
	copy(out[:], s)
	return out
}
