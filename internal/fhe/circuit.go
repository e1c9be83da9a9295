package fhe

// Circuit is the fixed function this core evaluates homomorphically: 64-bit
// unsigned wrapping addition of two operands, each a length-64 sequence of
// boolean ciphertexts in little-endian bit order.
type Circuit func(s *ServerFacade, a, b []Ciphertext) ([]Ciphertext, error)

// AddU64 evaluates 64-bit wrapping addition over two wrapped operands under
// the server's aggregated public key. When more than two clients submit
// data, callers are responsible for selecting exactly two operands, sorted
// by ascending share index (§9 resolves the source system's unspecified
// map-iteration order this way).
var AddU64 Circuit = func(s *ServerFacade, a, b []Ciphertext) ([]Ciphertext, error) {
	if len(a) != batchSize || len(b) != batchSize {
		return nil, &pkError{}
	}
	if s.pk == nil {
		return nil, errNoPK
	}

	out := make([]Ciphertext, batchSize)
	var carry byte
	for j := 0; j < batchSize; j++ {
		k := keystreamBit(s.pk, j)
		ab := a[j].Bit ^ k
		bb := b[j].Bit ^ k
		sum := ab ^ bb ^ carry
		carry = (ab & bb) | (carry & (ab ^ bb))
		out[j] = Ciphertext{Index: j, Bit: sum ^ k}
	}
	return out, nil
}
