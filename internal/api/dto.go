package api

import (
	"time"

	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
)

// sessionView is the wire representation of a Session returned by every
// session-bearing route. Byte blobs travel as base64 via Go's default
// []byte JSON marshaling.
type sessionView struct {
	ID                string   `json:"id"`
	Status            string   `json:"status"`
	ParticipantNumber int      `json:"participant_number"`
	PK                []byte   `json:"pk,omitempty"`
	Result            []byte   `json:"result,omitempty"`
	ClientIDs         []int    `json:"client_ids"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toSessionView(s *domain.Session) sessionView {
	ids := s.SortedClientIDs()
	clientIDs := make([]int, len(ids))
	for i, id := range ids {
		clientIDs[i] = int(id)
	}
	var result []byte
	if len(s.Result) > 0 {
		result = fhe.SerializeBatchedCiphertext(s.Result)
	}
	return sessionView{
		ID:                s.ID.String(),
		Status:            s.Status.String(),
		ParticipantNumber: s.ParticipantNumber(),
		PK:                s.PK,
		Result:            result,
		ClientIDs:         clientIDs,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

type createSessionRequest struct {
	ParticipantNumber int `json:"participant_number"`
}

type joinRequest struct {
	ClientID   int    `json:"client_id"`
	PkShare    []byte `json:"pk_share"`
	RpKeyShare []byte `json:"rp_key_share"`
}

type bootstrapRequest struct {
	BsKeyShare []byte `json:"bs_key_share"`
}

type submitDataRequest struct {
	EncryptedData []byte `json:"encrypted_data"`
}
