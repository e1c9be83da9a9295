package fhe

import (
	"encoding/binary"
	"fmt"
)

// Compact on-wire serialization for every facade artifact. Every pair here
// satisfies deserialize(serialize(x)) == x.

func SerializePadSeed(p PadSeed) []byte { return append([]byte(nil), p[:]...) }

func DeserializePadSeed(b []byte) (PadSeed, error) {
	var p PadSeed
	if len(b) != len(p) {
		return p, fmt.Errorf("fhe: pad seed must be %d bytes, got %d", len(p), len(b))
	}
	copy(p[:], b)
	return p, nil
}

func SerializePK(pk []byte) []byte { return append([]byte(nil), pk...) }

func DeserializePK(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("fhe: empty public key")
	}
	return append([]byte(nil), b...), nil
}

// SerializeBatchedCiphertext packs a BatchedCiphertext as [index(4 LE), bit]
// tuples, one per ciphertext.
func SerializeBatchedCiphertext(batched BatchedCiphertext) []byte {
	out := make([]byte, 0, len(batched)*5)
	var idx [4]byte
	for _, ct := range batched {
		binary.LittleEndian.PutUint32(idx[:], uint32(ct.Index))
		out = append(out, idx[:]...)
		out = append(out, ct.Bit)
	}
	return out
}

func DeserializeBatchedCiphertext(b []byte) (BatchedCiphertext, error) {
	if len(b)%5 != 0 {
		return nil, fmt.Errorf("fhe: malformed batched ciphertext, length %d not a multiple of 5", len(b))
	}
	n := len(b) / 5
	out := make(BatchedCiphertext, n)
	for i := 0; i < n; i++ {
		off := i * 5
		out[i] = Ciphertext{
			Index: int(binary.LittleEndian.Uint32(b[off : off+4])),
			Bit:   b[off+4],
		}
	}
	return out, nil
}

func SerializeCiphertext(ct Ciphertext) []byte {
	var out [5]byte
	binary.LittleEndian.PutUint32(out[:4], uint32(ct.Index))
	out[4] = ct.Bit
	return out[:]
}

func DeserializeCiphertext(b []byte) (Ciphertext, error) {
	if len(b) != 5 {
		return Ciphertext{}, fmt.Errorf("fhe: ciphertext must be 5 bytes, got %d", len(b))
	}
	return Ciphertext{Index: int(binary.LittleEndian.Uint32(b[:4])), Bit: b[4]}, nil
}

// SerializeDecShares packs one participant's full vector of per-bit
// decryption shares (as published to peers over the /decrypt_share
// endpoint).
func SerializeDecShares(shares []DecryptionShare) []byte {
	out := make([]byte, 0, len(shares)*5)
	var idx [4]byte
	for _, s := range shares {
		binary.LittleEndian.PutUint32(idx[:], uint32(s.Index))
		out = append(out, idx[:]...)
		out = append(out, s.Bit)
	}
	return out
}

func DeserializeDecShares(b []byte) ([]DecryptionShare, error) {
	if len(b)%5 != 0 {
		return nil, fmt.Errorf("fhe: malformed decryption shares, length %d not a multiple of 5", len(b))
	}
	n := len(b) / 5
	out := make([]DecryptionShare, n)
	for i := 0; i < n; i++ {
		off := i * 5
		out[i] = DecryptionShare{
			Index: int(binary.LittleEndian.Uint32(b[off : off+4])),
			Bit:   b[off+4],
		}
	}
	return out, nil
}

// AggregateDecryptionShares XORs one ciphertext's decryption shares
// (one contributed by each participant, own share included) together with
// the ciphertext itself to recover the plaintext bit.
func AggregateDecryptionShares(ct Ciphertext, shares []DecryptionShare) bool {
	bit := ct.Bit
	for _, s := range shares {
		bit ^= s.Bit
	}
	return bit&1 == 1
}

// U64ToBits encodes v as 64 booleans in little-endian bit order.
func U64ToBits(v uint64) []bool {
	bits := make([]bool, 64)
	for i := 0; i < 64; i++ {
		bits[i] = (v>>uint(i))&1 == 1
	}
	return bits
}

// BitsToU64 decodes 64 little-endian-ordered booleans back to a uint64.
func BitsToU64(bits []bool) uint64 {
	var v uint64
	for i, b := range bits {
		if b {
			v |= 1 << uint(i)
		}
	}
	return v
}
