package store

import (
	"github.com/ocx/fhecoord/internal/domain"
	"github.com/ocx/fhecoord/internal/fhe"
)

// rehydrate rebuilds a session's non-serialized FHE server handle from its
// persisted client shares. It is a no-op (beyond allocating an empty
// facade) before WaitingForBootstrap, since there is nothing to aggregate
// yet. This is the one piece of domain logic the store layer owns: per §3,
// "server_state ... is rebuilt from client_info on load", which only the
// persistence port can do since it is the layer that knows a process
// boundary was just crossed.
func rehydrate(s *domain.Session) {
	s.ServerState = fhe.NewServerFacade(s.Ring())
	if s.Status == domain.WaitingForClients {
		return
	}

	ids := s.SortedClientIDs()
	pkShares := make([]fhe.PadSeed, 0, len(ids))
	rpShares := make([]fhe.PadSeed, 0, len(ids))
	for _, id := range ids {
		c := s.Clients[id]
		if ps, ok := toPadSeed(c.PkShare); ok {
			pkShares = append(pkShares, ps)
		}
		if rs, ok := toPadSeed(c.RpKeyShare); ok {
			rpShares = append(rpShares, rs)
		}
	}
	if len(pkShares) > 0 {
		s.ServerState.AggregatePkShares(pkShares)
	}
	if len(rpShares) > 0 {
		s.ServerState.AggregateRpKeyShares(rpShares)
	}

	if s.Status == domain.WaitingForBootstrap {
		return
	}

	bsShares := make([]fhe.PadSeed, 0, len(ids))
	for _, id := range ids {
		c := s.Clients[id]
		if bs, ok := toPadSeed(c.BsKeyShare); ok {
			bsShares = append(bsShares, bs)
		}
	}
	if len(bsShares) > 0 {
		s.ServerState.AggregateBsKeyShares(bsShares)
	}
}

func toPadSeed(b []byte) (fhe.PadSeed, bool) {
	ps, err := fhe.DeserializePadSeed(b)
	if err != nil {
		return fhe.PadSeed{}, false
	}
	return ps, true
}
