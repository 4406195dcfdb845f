package ikeerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	assert.Equal(t, ClassNetwork, New(IkeInitTimeout).Class())
	assert.Equal(t, ClassNetwork, New(IkeDpdTimeout).Class())
	assert.Equal(t, ClassNetwork, New(IkeMobilityTimeout).Class())
	assert.Equal(t, ClassProtocol, NewProtocolException(0, nil).Class())
	assert.Equal(t, ClassInternal, New(IkeNetworkLost).Class())
	assert.Equal(t, ClassInternal, New(IkeInternalException).Class())
	assert.Equal(t, ClassNone, (*Error)(nil).Class())
}

func TestBackoffDecode(t *testing.T) {
	// unit=Unit2Sec(0b011), value=5 -> byte = 0b011_00101
	e := NewProtocolException(1, []byte{0b011_00101})
	require.NotNil(t, e.Backoff())
	secs, ok := e.Backoff().Seconds()
	require.True(t, ok)
	assert.Equal(t, 10, secs)
}

func TestBackoffDeactivate(t *testing.T) {
	// unit=UnitDeactivate(0b111)
	e := NewProtocolException(1, []byte{0b111_00001})
	require.NotNil(t, e.Backoff())
	_, ok := e.Backoff().Seconds()
	assert.False(t, ok)
}

func TestVoluntary(t *testing.T) {
	assert.True(t, IsVoluntary(nil))
	assert.True(t, IsVoluntary(NoErr()))
	assert.False(t, IsVoluntary(New(IkeNetworkLost)))
}
