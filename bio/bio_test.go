// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package bio

import (
	"context"
	"math"
	"os"
	"path"
	"testing"

	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/sleeplock"
	"github.com/juju/errors"
	"github.com/shirou/gopsutil/disk"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMemDevice(t *testing.T) {
	dev := NewMemDevice(4)
	require.EqualValues(t, 4, dev.NumBlocks())

	in := make([]byte, BSize)
	in[0], in[BSize-1] = 0xaa, 0x55
	require.NoError(t, dev.WriteBlock(2, in))
	out := make([]byte, BSize)
	require.NoError(t, dev.ReadBlock(2, out))
	require.Equal(t, in, out)
	require.Error(t, dev.ReadBlock(4, out))
	require.Error(t, dev.WriteBlock(9, in))

	clone, err := NewMemDeviceFromImage(dev.Image())
	require.NoError(t, err)
	require.NoError(t, clone.ReadBlock(2, out))
	require.Equal(t, in, out)

	_, err = NewMemDeviceFromImage(make([]byte, BSize+1))
	require.Error(t, err)
}

func TestFileDevice(t *testing.T) {
	p := path.Join(t.TempDir(), "disk.img")
	dev, err := CreateFileDevice(p, 8)
	require.NoError(t, err)
	require.EqualValues(t, 8, dev.NumBlocks())

	in := make([]byte, BSize)
	copy(in, "block seven")
	require.NoError(t, dev.WriteBlock(7, in))
	require.Error(t, dev.WriteBlock(8, in))
	require.NoError(t, dev.Sync())
	require.NoError(t, dev.Close())

	dev, err = OpenFileDevice(p)
	require.NoError(t, err)
	defer dev.Close()
	out := make([]byte, BSize)
	require.NoError(t, dev.ReadBlock(7, out))
	require.Equal(t, in, out)

	_, err = OpenFileDevice(path.Join(t.TempDir(), "missing.img"))
	require.Error(t, err)
}

func TestFileDeviceNoSpace(t *testing.T) {
	dir := t.TempDir()
	usage, err := disk.Usage(dir)
	require.NoError(t, err)
	if usage.Free >= uint64(math.MaxUint32)*BSize {
		t.Skipf("%v has %d bytes free", dir, usage.Free)
	}
	p := path.Join(dir, "huge.img")
	_, err = CreateFileDevice(p, math.MaxUint32)
	require.Error(t, err)
	require.Equal(t, proto.ErrNoSpace, errors.Cause(err))
	_, err = os.Stat(p)
	require.True(t, os.IsNotExist(err))
}

func TestCacheReadWriteThrough(t *testing.T) {
	ctx := sleeplock.WithOwner(context.Background(), 1)
	dev := NewMemDevice(16)
	c, err := NewCache(dev, 2)
	require.NoError(t, err)
	require.Equal(t, Device(dev), c.Device())

	b, err := c.Read(ctx, 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, b.Blockno)
	copy(b.Data[:], "hello")
	b.MarkDirty()
	require.NoError(t, c.Release(ctx, b))

	raw := make([]byte, BSize)
	require.NoError(t, dev.ReadBlock(3, raw))
	require.Equal(t, "hello", string(raw[:5]))

	b, err = c.Read(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b.Data[:5]))
	require.NoError(t, c.Release(ctx, b))

	_, err = c.Read(ctx, 16)
	require.Error(t, err)
}

func TestCacheEviction(t *testing.T) {
	ctx := sleeplock.WithOwner(context.Background(), 1)
	dev := NewMemDevice(16)
	c, err := NewCache(dev, 2)
	require.NoError(t, err)
	for blk := uint32(0); blk < 8; blk++ {
		b, err := c.Read(ctx, blk)
		require.NoError(t, err)
		require.NoError(t, c.Release(ctx, b))
	}
	require.Equal(t, 2, c.idle.Len())
	require.Len(t, c.inuse, 0)
}

func TestCacheReleaseUnlockedPanics(t *testing.T) {
	c, err := NewCache(NewMemDevice(4), 0)
	require.NoError(t, err)
	b, err := c.Read(sleeplock.WithOwner(context.Background(), 1), 1)
	require.NoError(t, err)
	require.Panics(t, func() {
		c.Release(sleeplock.WithOwner(context.Background(), 2), b)
	})
}

func TestCacheConcurrentIncrements(t *testing.T) {
	dev := NewMemDevice(4)
	c, err := NewCache(dev, 4)
	require.NoError(t, err)
	var g errgroup.Group
	for pid := 1; pid <= 8; pid++ {
		ctx := sleeplock.WithOwner(context.Background(), pid)
		g.Go(func() error {
			for i := 0; i < 100; i++ {
				b, err := c.Read(ctx, 1)
				if err != nil {
					return err
				}
				b.Data[0]++
				b.MarkDirty()
				if err = c.Release(ctx, b); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	raw := make([]byte, BSize)
	require.NoError(t, dev.ReadBlock(1, raw))
	require.Equal(t, byte(800%256), raw[0])
}
