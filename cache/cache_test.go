// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "abc/3/1.4375", Key("abc", 3, 1.4375))
	assert.Equal(t, "abc/1/1", Key("abc", 1, 1))
	assert.Equal(t, "abc/1/1.25", Key("abc", 1, 1.25))
	assert.NotEqual(t, Key("abc", 1, 1.25), Key("abc", 1, 1.2500001))

	assert.NotEqual(t, Key("abc", 1, 1.25), Key("abc", 2, 1.25))
}

func TestMemoryLRU(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	require.NoError(t, m.Set(ctx, "a", []byte("A")))
	require.NoError(t, m.Set(ctx, "b", []byte("B")))

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), got)

	// b is now least recently used
	require.NoError(t, m.Set(ctx, "c", []byte("C")))
	assert.Equal(t, 2, m.Len())

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)

	require.NoError(t, m.Set(ctx, "a", []byte("A2")))
	got, _ = m.Get(ctx, "a")
	assert.Equal(t, []byte("A2"), got)
	assert.Equal(t, 2, m.Len())
}

func TestMemoryMinimumSize(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "a", []byte("A")))
	require.NoError(t, m.Set(ctx, "b", []byte("B")))
	assert.Equal(t, 1, m.Len())
}

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), "redis://"+s.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, s
}

func TestRedis(t *testing.T) {
	r, s := setupRedis(t)
	ctx := context.Background()

	_, err := r.Get(ctx, "doc/1/1.000000")
	assert.ErrorIs(t, err, ErrMiss)

	frame := []byte{0x89, 'P', 'N', 'G', 0}
	require.NoError(t, r.Set(ctx, "doc/1/1.000000", frame))
	got, err := r.Get(ctx, "doc/1/1.000000")
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	assert.True(t, s.Exists("frame:doc/1/1.000000"))
	assert.Equal(t, time.Minute, s.TTL("frame:doc/1/1.000000"))

	s.FastForward(2 * time.Minute)
	_, err = r.Get(ctx, "doc/1/1.000000")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisErrors(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", 0)
	assert.Error(t, err)

	r, s := setupRedis(t)
	s.Close()
	_, err = r.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
