package carriersignal

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/pco"
)

func newTestReceiver(t *testing.T) (*Receiver, *pco.Store) {
	cfg, err := carrierconfig.LoadBytes([]byte(`
ints:
  EPDG_PCO_ID_IPV4: 10
  EPDG_PCO_ID_IPV6: 11
`))
	require.NoError(t, err)
	store := pco.NewStore(10, 11)
	return NewReceiver(cfg, store), store
}

func TestOnIntentAcceptsConfiguredIPv4PcoID(t *testing.T) {
	r, store := newTestReceiver(t)
	payload := append([]byte{1, 2, 3}, net.ParseIP("203.0.113.5").To4()...)

	r.OnIntent(context.Background(), Intent{APNType: 1, PcoID: 10, PcoValue: payload})

	assert.Equal(t, net.ParseIP("203.0.113.5").To4(), store.AddressForIPv4())
}

func TestOnIntentIgnoresNonIMSApnType(t *testing.T) {
	r, store := newTestReceiver(t)
	payload := append([]byte{1, 2, 3}, net.ParseIP("203.0.113.5").To4()...)

	r.OnIntent(context.Background(), Intent{APNType: 0, PcoID: 10, PcoValue: payload})

	assert.Nil(t, store.AddressForIPv4())
}

func TestOnIntentIgnoresUnconfiguredPcoID(t *testing.T) {
	r, store := newTestReceiver(t)
	payload := append([]byte{1, 2, 3}, net.ParseIP("203.0.113.5").To4()...)

	r.OnIntent(context.Background(), Intent{APNType: 1, PcoID: 99, PcoValue: payload})

	assert.Nil(t, store.AddressForIPv4())
}
