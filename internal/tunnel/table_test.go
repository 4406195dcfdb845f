package tunnel

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableCreateGetRemove(t *testing.T) {
	tbl := NewTable()
	require.False(t, tbl.Exists("ims"))

	tbl.Create(&Config{APN: "ims", BoundEpdg: net.ParseIP("127.0.0.1")})
	require.True(t, tbl.Exists("ims"))
	assert.Equal(t, "ims", tbl.Get("ims").APN)

	tbl.Remove("ims")
	assert.False(t, tbl.Exists("ims"))
	assert.Nil(t, tbl.Get("ims"))
}

func TestTableUpdateMutatesInPlace(t *testing.T) {
	tbl := NewTable()
	tbl.Create(&Config{APN: "ims"})

	tbl.Update("ims", func(c *Config) {
		c.IsEmergency = true
	})

	assert.True(t, tbl.Get("ims").IsEmergency)
}

func TestTableAPNsListsAll(t *testing.T) {
	tbl := NewTable()
	tbl.Create(&Config{APN: "ims"})
	tbl.Create(&Config{APN: "sos"})

	apns := tbl.APNs()
	assert.ElementsMatch(t, []string{"ims", "sos"}, apns)
}

func TestTokenTableMonotonicAndValidity(t *testing.T) {
	tt := NewTokenTable()
	assert.Equal(t, uint64(0), tt.Current("ims"))

	tok1 := tt.Next("ims")
	assert.Equal(t, uint64(1), tok1)
	assert.True(t, tt.Valid("ims", tok1))

	tok2 := tt.Next("ims")
	assert.Equal(t, uint64(2), tok2)
	assert.False(t, tt.Valid("ims", tok1))
	assert.True(t, tt.Valid("ims", tok2))
}
