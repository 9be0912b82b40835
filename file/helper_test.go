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

package file

import (
	"context"
	"testing"

	"github.com/cubefs/xkfs/bio"
	"github.com/cubefs/xkfs/fs"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/sleeplock"
	"github.com/stretchr/testify/require"
)

func ownerCtx(pid int) context.Context {
	return sleeplock.WithOwner(context.Background(), pid)
}

func newTestDevice(t *testing.T) *bio.MemDevice {
	dev := bio.NewMemDevice(256)
	_, err := fs.Format(context.Background(), dev, fs.FormatOptions{Console: true})
	require.NoError(t, err)
	return dev
}

func newTestTable(t *testing.T, mutate func(*fs.Options)) *Table {
	return mountTable(t, newTestDevice(t), mutate)
}

// mountTable mounts dev writable, with the console device backed by Null.
func mountTable(t *testing.T, dev bio.Device, mutate func(*fs.Options)) *Table {
	opt := fs.DefaultOptions()
	opt.Writable = true
	if mutate != nil {
		mutate(opt)
	}
	f, err := fs.Mount(context.Background(), dev, opt)
	require.NoError(t, err)
	f.RegisterDevice(proto.DevConsole, fs.Null{})
	return NewTable(f)
}

func openFd(t *testing.T, d *Descriptors, ctx context.Context, path string, mode int) int {
	fd, err := d.Open(ctx, nil, path, mode)
	require.NoError(t, err)
	return fd
}
