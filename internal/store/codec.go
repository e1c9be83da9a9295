package store

import (
	"encoding/binary"
	"fmt"

	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
)

// encodeClientInfo/decodeClientInfo serialize the client map into the
// compact binary form stored in the sessions.client_info column. Format:
// [count u32][ per client: id u32, then four length-prefixed byte blobs ].
func encodeClientInfo(clients map[domain.ClientID]*domain.ClientRecord) []byte {
	ids := make([]domain.ClientID, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	buf := make([]byte, 0, 64*len(ids))
	buf = appendU32(buf, uint32(len(ids)))
	for _, id := range sortClientIDs(ids) {
		c := clients[id]
		buf = appendU32(buf, uint32(id))
		buf = appendBlob(buf, c.PkShare)
		buf = appendBlob(buf, c.RpKeyShare)
		buf = appendBlob(buf, c.BsKeyShare)
		buf = appendBlob(buf, c.EncryptedData)
	}
	return buf
}

func decodeClientInfo(b []byte) (map[domain.ClientID]*domain.ClientRecord, error) {
	out := make(map[domain.ClientID]*domain.ClientRecord)
	if len(b) == 0 {
		return out, nil
	}
	off := 0
	count, n, err := readU32(b, off)
	if err != nil {
		return nil, err
	}
	off += n
	for i := uint32(0); i < count; i++ {
		id, n, err := readU32(b, off)
		if err != nil {
			return nil, err
		}
		off += n

		pkShare, n, err := readBlob(b, off)
		if err != nil {
			return nil, err
		}
		off += n
		rpShare, n, err := readBlob(b, off)
		if err != nil {
			return nil, err
		}
		off += n
		bsShare, n, err := readBlob(b, off)
		if err != nil {
			return nil, err
		}
		off += n
		data, n, err := readBlob(b, off)
		if err != nil {
			return nil, err
		}
		off += n

		cid := domain.ClientID(int(id))
		out[cid] = &domain.ClientRecord{
			ID:            cid,
			PkShare:       pkShare,
			RpKeyShare:    rpShare,
			BsKeyShare:    bsShare,
			EncryptedData: data,
		}
	}
	return out, nil
}

func encodeResult(result []fhe.Ciphertext) []byte {
	return fhe.SerializeBatchedCiphertext(result)
}

func decodeResult(b []byte) ([]fhe.Ciphertext, error) {
	batched, err := fhe.DeserializeBatchedCiphertext(b)
	if err != nil {
		return nil, err
	}
	return []fhe.Ciphertext(batched), nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBlob(buf []byte, b []byte) []byte {
	buf = appendU32(buf, uint32(len(b)))
	return append(buf, b...)
}

func readU32(b []byte, off int) (uint32, int, error) {
	if off+4 > len(b) {
		return 0, 0, fmt.Errorf("store: truncated client_info at offset %d", off)
	}
	return binary.LittleEndian.Uint32(b[off : off+4]), 4, nil
}

func readBlob(b []byte, off int) ([]byte, int, error) {
	length, n, err := readU32(b, off)
	if err != nil {
		return nil, 0, err
	}
	off += n
	if off+int(length) > len(b) {
		return nil, 0, fmt.Errorf("store: truncated blob at offset %d", off)
	}
	out := append([]byte(nil), b[off:off+int(length)]...)
	return out, n + int(length), nil
}

func sortClientIDs(ids []domain.ClientID) []domain.ClientID {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
