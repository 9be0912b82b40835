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
	"io"
	"sync"

	"github.com/cubefs/xkfs/proto"
	"github.com/juju/errors"
)

// Device serves reads and writes of device inodes, selected by DevID.
type Device interface {
	Read(ctx context.Context, ip *Inode, dst []byte) (int, error)
	Write(ctx context.Context, ip *Inode, src []byte) (int, error)
}

// RegisterDevice installs dev as the handler for devid, replacing any
// previous one. A nil dev removes the handler.
func (f *FileSystem) RegisterDevice(devid int16, dev Device) {
	f.devMu.Lock()
	defer f.devMu.Unlock()
	if dev == nil {
		delete(f.devices, devid)
		return
	}
	f.devices[devid] = dev
}

func (f *FileSystem) device(devid int16) (Device, error) {
	f.devMu.RLock()
	defer f.devMu.RUnlock()
	dev, ok := f.devices[devid]
	if !ok {
		return nil, errors.Annotatef(proto.ErrNoDevice, "devid %d", devid)
	}
	return dev, nil
}

// Console is a terminal backed by a reader and a writer.
type Console struct {
	sync.Mutex
	In  io.Reader
	Out io.Writer
}

func (c *Console) Read(ctx context.Context, ip *Inode, dst []byte) (int, error) {
	if c.In == nil {
		return 0, nil
	}
	n, err := c.In.Read(dst)
	if err == io.EOF {
		err = nil
	}
	return n, errors.Trace(err)
}

func (c *Console) Write(ctx context.Context, ip *Inode, src []byte) (int, error) {
	if c.Out == nil {
		return len(src), nil
	}
	c.Lock()
	defer c.Unlock()
	n, err := c.Out.Write(src)
	return n, errors.Trace(err)
}

// Null discards writes and reads as empty.
type Null struct{}

func (Null) Read(ctx context.Context, ip *Inode, dst []byte) (int, error) {
	return 0, nil
}

func (Null) Write(ctx context.Context, ip *Inode, src []byte) (int, error) {
	return len(src), nil
}
