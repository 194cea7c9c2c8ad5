package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsAndLocks(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := New(ctx, Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	locker := NewLocker(client)
	lock, err := locker.Obtain(ctx, "jobs:lock:test", time.Minute, nil)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "jobs:lock:test", time.Minute, nil)
	assert.ErrorIs(t, err, redislock.ErrNotObtained)
	require.NoError(t, lock.Release(ctx))
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Config{Addr: addr})
	require.ErrorContains(t, err, "platform/cache: ping")
}

func TestAsynqOpt(t *testing.T) {
	opt := Config{Addr: "redis:6379", Password: "secret", DB: 2}.AsynqOpt()
	assert.Equal(t, "redis:6379", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
}
