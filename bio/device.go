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

// Package bio is the block layer under the file system: a device that reads
// and writes whole blocks, and a cache of block buffers in front of it.
package bio

import (
	"sync"

	"github.com/cubefs/xkfs/proto"
	"github.com/juju/errors"
)

const BSize = proto.BlockSize

var ErrBlockOutOfRange = errors.New("block number out of range")

// Device reads and writes whole blocks.
type Device interface {
	ReadBlock(blkno uint32, p []byte) error
	WriteBlock(blkno uint32, p []byte) error
	NumBlocks() uint32
	Sync() error
	Close() error
}

// MemDevice is a device held in memory.
type MemDevice struct {
	sync.RWMutex
	data []byte
}

func NewMemDevice(nblocks uint32) *MemDevice {
	return &MemDevice{data: make([]byte, int(nblocks)*BSize)}
}

// NewMemDeviceFromImage wraps a copy of a disk image.
func NewMemDeviceFromImage(image []byte) (*MemDevice, error) {
	if len(image)%BSize != 0 {
		return nil, errors.Errorf("image size %d is not a multiple of %d", len(image), BSize)
	}
	data := make([]byte, len(image))
	copy(data, image)
	return &MemDevice{data: data}, nil
}

func (d *MemDevice) NumBlocks() uint32 {
	return uint32(len(d.data) / BSize)
}

func (d *MemDevice) ReadBlock(blkno uint32, p []byte) error {
	if blkno >= d.NumBlocks() {
		return errors.Annotatef(ErrBlockOutOfRange, "read block %d", blkno)
	}
	d.RLock()
	copy(p[:BSize], d.data[int(blkno)*BSize:])
	d.RUnlock()
	return nil
}

func (d *MemDevice) WriteBlock(blkno uint32, p []byte) error {
	if blkno >= d.NumBlocks() {
		return errors.Annotatef(ErrBlockOutOfRange, "write block %d", blkno)
	}
	d.Lock()
	copy(d.data[int(blkno)*BSize:], p[:BSize])
	d.Unlock()
	return nil
}

// Image returns a copy of the device contents.
func (d *MemDevice) Image() []byte {
	d.RLock()
	defer d.RUnlock()
	image := make([]byte, len(d.data))
	copy(image, d.data)
	return image
}

func (d *MemDevice) Sync() error  { return nil }
func (d *MemDevice) Close() error { return nil }
