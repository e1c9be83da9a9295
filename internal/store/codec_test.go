package store

import (
	"testing"

	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
)

func TestEncodeDecodeClientInfoRoundTrip(t *testing.T) {
	clients := map[domain.ClientID]*domain.ClientRecord{
		2: {ID: 2, PkShare: []byte("pk2"), RpKeyShare: []byte("rp2"), BsKeyShare: []byte("bs2"), EncryptedData: []byte("data2")},
		0: {ID: 0, PkShare: []byte("pk0"), RpKeyShare: []byte("rp0")},
		1: {ID: 1, PkShare: []byte("pk1"), RpKeyShare: []byte("rp1")},
	}

	decoded, err := decodeClientInfo(encodeClientInfo(clients))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(clients) {
		t.Fatalf("length mismatch: got %d, want %d", len(decoded), len(clients))
	}
	for id, want := range clients {
		got, ok := decoded[id]
		if !ok {
			t.Fatalf("missing client %d after round trip", id)
		}
		if string(got.PkShare) != string(want.PkShare) || string(got.RpKeyShare) != string(want.RpKeyShare) {
			t.Fatalf("client %d share mismatch after round trip", id)
		}
	}
}

func TestEncodeDecodeEmptyClientInfo(t *testing.T) {
	decoded, err := decodeClientInfo(encodeClientInfo(map[domain.ClientID]*domain.ClientRecord{}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(decoded))
	}
}

func TestDecodeClientInfoRejectsTruncatedInput(t *testing.T) {
	if _, err := decodeClientInfo([]byte{1, 0, 0}); err == nil {
		t.Fatalf("expected error decoding truncated client_info")
	}
}

func TestEncodeDecodeResultRoundTrip(t *testing.T) {
	result := []fhe.Ciphertext{{Index: 0, Bit: 1}, {Index: 1, Bit: 0}}
	decoded, err := decodeResult(encodeResult(result))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(result) {
		t.Fatalf("length mismatch")
	}
	for i := range result {
		if decoded[i] != result[i] {
			t.Fatalf("mismatch at %d", i)
		}
	}
}
