// Package carriersignal decodes the CARRIER_SIGNAL_PCO_VALUE intent and
// feeds accepted payloads into the shared pco.Store the selector reads
// from. Grounded on the manager's message-adapter pattern
// (internal/manager/resolve.go's selectorCallback): an external event is
// translated at the boundary and never mutates shared state directly.
package carriersignal

import (
	"context"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/pco"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// Intent is the decoded form of a CARRIER_SIGNAL_PCO_VALUE broadcast: the
// three extras carried on the intent, APN_TYPE, PCO_ID, and PCO_VALUE.
type Intent struct {
	APNType  int
	PcoID    int
	PcoValue []byte
}

// Receiver gates and forwards Intents into a pco.Store.
type Receiver struct {
	cfg   *carrierconfig.Config
	store *pco.Store
}

// NewReceiver builds a Receiver bound to cfg's configured PCO ids and
// store, the same store the selector's PcoStore collaborator reads from.
func NewReceiver(cfg *carrierconfig.Config, store *pco.Store) *Receiver {
	return &Receiver{cfg: cfg, store: store}
}

// OnIntent accepts in only when APN_TYPE is IMS and PCO_ID matches one of
// the carrier-configured ids; anything else is dropped.
func (r *Receiver) OnIntent(ctx context.Context, in Intent) {
	if in.APNType != epdgapi.IMSApnType {
		return
	}
	ipv4ID := r.cfg.Int(carrierconfig.KeyPcoIDIPv4)
	ipv6ID := r.cfg.Int(carrierconfig.KeyPcoIDIPv6)
	if in.PcoID != ipv4ID && in.PcoID != ipv6ID {
		dlog.Debugf(ctx, "carriersignal: ignoring PCO_ID %d, configured ids are %d/%d", in.PcoID, ipv4ID, ipv6ID)
		return
	}
	r.store.Push(pco.APNTypeIMS, in.PcoID, in.PcoValue)
	dlog.Debugf(ctx, "carriersignal: accepted PCO_ID %d (%d bytes)", in.PcoID, len(in.PcoValue))
}
