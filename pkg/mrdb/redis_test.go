package mrdb

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer rdb.Close()

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewClientErrors(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.Error(t, err)

	_, err = NewClient(context.Background(), "not a url")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewClient(context.Background(), "redis://"+addr)
	assert.Error(t, err)

	rdb, err := NewClient(context.Background(), "redis://"+addr, WithPing(false))
	require.NoError(t, err)
	rdb.Close()
}
