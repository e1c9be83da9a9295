// Package participant is the driver one MP-FHE participant runs: join the
// coordinator, wait for its turns, encrypt and submit its argument, then
// collect peer decryption shares and combine the result locally.
package participant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ocx/fhecoord/internal/apperr"
)

// coordinatorClient is the thin HTTP client against the coordinator's
// session routes.
type coordinatorClient struct {
	baseURL string
	http    *http.Client
}

func newCoordinatorClient(baseURL string) *coordinatorClient {
	return &coordinatorClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

type sessionResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ParticipantNumber int    `json:"participant_number"`
	PK                []byte `json:"pk,omitempty"`
	Result            []byte `json:"result,omitempty"`
	ClientIDs         []int  `json:"client_ids"`
}

func (c *coordinatorClient) getSession(ctx context.Context, sessionID string) (*sessionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sessions/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *coordinatorClient) join(ctx context.Context, sessionID string, clientID int, pkShare, rpKeyShare []byte) (*sessionResponse, error) {
	body, _ := json.Marshal(struct {
		ClientID   int    `json:"client_id"`
		PkShare    []byte `json:"pk_share"`
		RpKeyShare []byte `json:"rp_key_share"`
	}{clientID, pkShare, rpKeyShare})
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/sessions/"+sessionID, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *coordinatorClient) bootstrap(ctx context.Context, sessionID string, clientID int, bsKeyShare []byte) (*sessionResponse, error) {
	body, _ := json.Marshal(struct {
		BsKeyShare []byte `json:"bs_key_share"`
	}{bsKeyShare})
	url := fmt.Sprintf("%s/v1/sessions/%s/clients/%d/bootstrap", c.baseURL, sessionID, clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *coordinatorClient) submitData(ctx context.Context, sessionID string, clientID int, encryptedData []byte) (*sessionResponse, error) {
	body, _ := json.Marshal(struct {
		EncryptedData []byte `json:"encrypted_data"`
	}{encryptedData})
	url := fmt.Sprintf("%s/v1/sessions/%s/clients/%d/data", c.baseURL, sessionID, clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *coordinatorClient) do(req *http.Request) (*sessionResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.UnexpectedResponse("coordinator request failed: " + err.Error())
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.UnexpectedResponse("reading coordinator response: " + err.Error())
	}
	if resp.StatusCode >= 300 {
		return nil, apperr.UnexpectedResponse(fmt.Sprintf("coordinator returned status %d: %s", resp.StatusCode, string(data)))
	}
	var out sessionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.UnexpectedResponse("decoding coordinator response: " + err.Error())
	}
	return &out, nil
}

// fetchPeerShares retrieves another participant's published decryption
// share vector from its /decrypt_share endpoint.
func fetchPeerShares(ctx context.Context, httpClient *http.Client, peerBaseURL, sessionID string) ([]byte, error) {
	url := peerBaseURL + "/decrypt_share?session_id=" + sessionID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, apperr.UnexpectedResponse("peer request failed: " + err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // peer has not published shares yet; caller retries
	}
	if resp.StatusCode >= 300 {
		return nil, apperr.UnexpectedResponse(fmt.Sprintf("peer returned status %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}
