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

package fs

import (
	"context"
	"testing"

	"github.com/cubefs/xkfs/bio"
	"github.com/cubefs/xkfs/util/sleeplock"
	"github.com/stretchr/testify/require"
)

const testBlocks = 256

func ownerCtx(pid int) context.Context {
	return sleeplock.WithOwner(context.Background(), pid)
}

func newTestDevice(t *testing.T, nblocks uint32, fopt FormatOptions) *bio.MemDevice {
	dev := bio.NewMemDevice(nblocks)
	_, err := Format(context.Background(), dev, fopt)
	require.NoError(t, err)
	return dev
}

func mountTest(t *testing.T, dev bio.Device, mutate func(*Options)) *FileSystem {
	opt := DefaultOptions()
	opt.Writable = true
	if mutate != nil {
		mutate(opt)
	}
	f, err := Mount(context.Background(), dev, opt)
	require.NoError(t, err)
	return f
}

func newTestFS(t *testing.T, mutate func(*Options)) (*FileSystem, *bio.MemDevice) {
	dev := newTestDevice(t, testBlocks, FormatOptions{})
	return mountTest(t, dev, mutate), dev
}

func writeFile(t *testing.T, f *FileSystem, ctx context.Context, path string, data []byte) *Inode {
	ip, err := f.Create(ctx, nil, path)
	require.NoError(t, err)
	require.NoError(t, f.Lock(ctx, ip))
	n, err := f.Write(ctx, ip, data, ip.Size)
	f.Unlock(ctx, ip)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	return ip
}

func readAll(t *testing.T, f *FileSystem, ctx context.Context, ip *Inode) []byte {
	require.NoError(t, f.Lock(ctx, ip))
	defer f.Unlock(ctx, ip)
	buf := make([]byte, ip.Size)
	n, err := f.Read(ctx, ip, buf, 0)
	require.NoError(t, err)
	require.EqualValues(t, ip.Size, n)
	return buf
}

func checkClean(t *testing.T, f *FileSystem) *CheckReport {
	r, err := f.Check(ownerCtx(99))
	require.NoError(t, err)
	require.True(t, r.OK(), "%v", r.Problems)
	return r
}

func patternData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}
