package participant

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ocx/fhecoord/internal/apperr"
	"github.com/ocx/fhecoord/internal/fhe"
)

const pollInterval = time.Second

// Config configures one participant driver run.
type Config struct {
	ServerURL     string
	Port          string
	ClientID      int
	SessionID     string
	CRSSeed       string
	PeerEndpoints []string
}

// Driver runs the nine-phase participant protocol against one session:
// join, poll, bootstrap, poll, encrypt/submit, poll, decryption-share
// production and publication, peer share collection with retry, local
// combination.
type Driver struct {
	cfg    Config
	logger *slog.Logger

	coordinator *coordinatorClient
	shareSrv    *shareServer
	facade      *fhe.ClientFacade
}

func NewDriver(cfg Config, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	seed := fhe.CRSSeed(cfg.CRSSeed)
	return &Driver{
		cfg:         cfg,
		logger:      logger,
		coordinator: newCoordinatorClient(cfg.ServerURL),
		shareSrv:    newShareServer(cfg.Port),
		facade:      fhe.NewClientFacade(fhe.RingKindNative, cfg.ClientID, seed),
	}
}

// Run executes the full protocol for the given plaintext argument and
// returns the combined 64-bit result once every participant's decryption
// share has been collected.
func (d *Driver) Run(ctx context.Context, argument uint64) (uint64, error) {
	go func() {
		if err := d.shareSrv.listenAndServe(); err != nil {
			d.logger.Error("participant share server stopped", "error", err)
		}
	}()
	defer d.shareSrv.shutdown(context.Background())

	pkShare := d.facade.PkShareGen()
	rpShare := d.facade.RpKeyShareGen()

	if _, err := d.withRetry(ctx, "join", func() (*sessionResponse, error) {
		return d.coordinator.join(ctx, d.cfg.SessionID, d.cfg.ClientID, fhe.SerializePadSeed(pkShare), fhe.SerializePadSeed(rpShare))
	}); err != nil {
		return 0, err
	}
	d.logger.Info("joined session", "session_id", d.cfg.SessionID, "client_id", d.cfg.ClientID)

	bootstrapping, err := d.pollUntil(ctx, "WaitingForClients")
	if err != nil {
		return 0, err
	}
	d.facade.WithPK(bootstrapping.PK)

	bsKeyShare, err := d.facade.BsKeyShareGen()
	if err != nil {
		return 0, apperr.Internal("generate bs-key share", err)
	}
	if _, err := d.withRetry(ctx, "bootstrap", func() (*sessionResponse, error) {
		return d.coordinator.bootstrap(ctx, d.cfg.SessionID, d.cfg.ClientID, fhe.SerializePadSeed(bsKeyShare))
	}); err != nil {
		return 0, err
	}
	d.logger.Info("submitted bootstrap share", "session_id", d.cfg.SessionID)

	if _, err := d.pollUntil(ctx, "WaitingForBootstrap"); err != nil {
		return 0, err
	}

	ciphertext, err := d.facade.BatchedPkEncrypt(fhe.U64ToBits(argument))
	if err != nil {
		return 0, apperr.Internal("encrypt argument", err)
	}
	if _, err := d.withRetry(ctx, "submit_data", func() (*sessionResponse, error) {
		return d.coordinator.submitData(ctx, d.cfg.SessionID, d.cfg.ClientID, fhe.SerializeBatchedCiphertext(ciphertext))
	}); err != nil {
		return 0, err
	}
	d.logger.Info("submitted encrypted argument", "session_id", d.cfg.SessionID)

	done, err := d.pollUntil(ctx, "WaitingForArgument")
	if err != nil {
		return 0, err
	}

	result, err := fhe.DeserializeBatchedCiphertext(done.Result)
	if err != nil {
		return 0, apperr.Internal("decode circuit result", err)
	}

	ownShares := make([]fhe.DecryptionShare, len(result))
	for i, ct := range result {
		ownShares[i] = d.facade.DecryptShare(ct)
	}
	d.shareSrv.publish(d.cfg.SessionID, fhe.SerializeDecShares(ownShares))

	bits := make([]bool, len(result))
	for i, ct := range result {
		shares := []fhe.DecryptionShare{ownShares[i]}
		peerShares, err := d.collectPeerShares(ctx, ct.Index)
		if err != nil {
			return 0, err
		}
		shares = append(shares, peerShares...)
		bits[i] = fhe.AggregateDecryptionShares(ct, shares)
	}

	return fhe.BitsToU64(bits), nil
}

// collectPeerShares retries each configured peer on the fixed 1-second
// poll cadence, whether the failure is a transport error or the peer
// simply hasn't published yet, until that peer has published its share
// vector. It returns the peer's share at the given ciphertext index.
func (d *Driver) collectPeerShares(ctx context.Context, index int) ([]fhe.DecryptionShare, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	out := make([]fhe.DecryptionShare, 0, len(d.cfg.PeerEndpoints))

	for _, peer := range d.cfg.PeerEndpoints {
		for {
			data, err := fetchPeerShares(ctx, client, peer, d.cfg.SessionID)
			if err != nil {
				select {
				case <-time.After(pollInterval):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if data == nil {
				select {
				case <-time.After(pollInterval):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			shares, err := fhe.DeserializeDecShares(data)
			if err != nil {
				return nil, apperr.UnexpectedResponse("malformed peer decryption shares: " + err.Error())
			}
			for _, s := range shares {
				if s.Index == index {
					out = append(out, s)
					break
				}
			}
			break
		}
	}
	return out, nil
}

// pollUntil polls the coordinator at the fixed 1-second cadence until the
// session's status is no longer currentStatus, i.e. it has advanced past
// the phase the caller is waiting out.
func (d *Driver) pollUntil(ctx context.Context, currentStatus string) (*sessionResponse, error) {
	for {
		s, err := d.withRetry(ctx, "poll", func() (*sessionResponse, error) {
			return d.coordinator.getSession(ctx, d.cfg.SessionID)
		})
		if err != nil {
			return nil, err
		}
		if s.Status != currentStatus {
			return s, nil
		}
		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// withRetry retries a single coordinator call with bounded backoff when it
// fails at the transport level (connection refused, timeout, non-2xx). A
// call that succeeds but reports a non-terminal session status is not a
// failure and is handled by pollUntil's fixed cadence, not here.
func (d *Driver) withRetry(ctx context.Context, label string, call func() (*sessionResponse, error)) (*sessionResponse, error) {
	bo := newBackoff()
	for {
		resp, err := call()
		if err == nil {
			return resp, nil
		}
		if apperr.KindOf(err) != apperr.KindUnexpectedResponse {
			return nil, err
		}
		wait := bo.next()
		d.logger.Warn("participant: transient coordinator failure, retrying", "phase", label, "error", err, "backoff", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
