package ilog

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterOrdersFieldsAndPrependsTimestamp(t *testing.T) {
	f := NewFormatter("2006-01-02")
	entry := &logrus.Entry{
		Time:    time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		Message: "tunnel opened",
		Data:    logrus.Fields{"apn": "ims", "attempt": 2},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-31 tunnel opened apn=ims attempt=2\n", string(out))
}

func TestWithLevelDefaultsToInfoOnBadLevel(t *testing.T) {
	ctx := WithLevel(context.Background(), "not-a-level")
	require.NotNil(t, ctx)
	assert.NoError(t, ctx.Err())
}

func TestWithLevelHonorsValidLevel(t *testing.T) {
	ctx := WithLevel(context.Background(), "debug")
	require.NotNil(t, ctx)
	assert.NoError(t, ctx.Err())
}
