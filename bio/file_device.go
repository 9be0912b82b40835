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
	"os"
	"path/filepath"
	"sync"

	"github.com/cubefs/xkfs/proto"
	mmap "github.com/edsrzf/mmap-go"
	"github.com/juju/errors"
	"github.com/shirou/gopsutil/disk"
)

// FileDevice is a disk image file mapped into memory.
type FileDevice struct {
	sync.RWMutex
	fp  *os.File
	mem mmap.MMap
}

// CreateFileDevice creates or truncates the image at path to nblocks blocks
// and maps it.
func CreateFileDevice(path string, nblocks uint32) (d *FileDevice, err error) {
	if err = checkFreeSpace(path, uint64(nblocks)*BSize); err != nil {
		return nil, err
	}
	var fp *os.File
	if fp, err = os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644); err != nil {
		return nil, errors.Trace(err)
	}
	if err = fp.Truncate(int64(nblocks) * BSize); err != nil {
		fp.Close()
		return nil, errors.Trace(err)
	}
	return mapFile(fp)
}

// checkFreeSpace fails when the file system holding path cannot grow the
// image to size bytes. Space already taken by an image being replaced counts
// as free.
func checkFreeSpace(path string, size uint64) error {
	usage, err := disk.Usage(filepath.Dir(path))
	if err != nil {
		return errors.Annotatef(err, "disk usage of %v", path)
	}
	free := usage.Free
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		free += uint64(fi.Size())
	}
	if free < size {
		return errors.Annotatef(proto.ErrNoSpace, "image %v needs %d bytes, %d free", path, size, free)
	}
	return nil
}

// OpenFileDevice maps an existing image.
func OpenFileDevice(path string) (d *FileDevice, err error) {
	var fp *os.File
	if fp, err = os.OpenFile(path, os.O_RDWR, 0644); err != nil {
		return nil, errors.Trace(err)
	}
	return mapFile(fp)
}

func mapFile(fp *os.File) (d *FileDevice, err error) {
	var fi os.FileInfo
	if fi, err = fp.Stat(); err != nil {
		fp.Close()
		return nil, errors.Trace(err)
	}
	if fi.Size() == 0 || fi.Size()%BSize != 0 {
		fp.Close()
		return nil, errors.Errorf("image %v size %d is not a positive multiple of %d", fp.Name(), fi.Size(), BSize)
	}
	var mem mmap.MMap
	if mem, err = mmap.Map(fp, mmap.RDWR, 0); err != nil {
		fp.Close()
		return nil, errors.Annotatef(err, "mmap %v", fp.Name())
	}
	return &FileDevice{fp: fp, mem: mem}, nil
}

func (d *FileDevice) NumBlocks() uint32 {
	return uint32(len(d.mem) / BSize)
}

func (d *FileDevice) ReadBlock(blkno uint32, p []byte) error {
	if blkno >= d.NumBlocks() {
		return errors.Annotatef(ErrBlockOutOfRange, "read block %d", blkno)
	}
	d.RLock()
	copy(p[:BSize], d.mem[int(blkno)*BSize:])
	d.RUnlock()
	return nil
}

func (d *FileDevice) WriteBlock(blkno uint32, p []byte) error {
	if blkno >= d.NumBlocks() {
		return errors.Annotatef(ErrBlockOutOfRange, "write block %d", blkno)
	}
	d.Lock()
	copy(d.mem[int(blkno)*BSize:], p[:BSize])
	d.Unlock()
	return nil
}

func (d *FileDevice) Sync() error {
	return errors.Trace(d.mem.Flush())
}

func (d *FileDevice) Close() (err error) {
	if err = d.mem.Flush(); err != nil {
		return errors.Trace(err)
	}
	if err = d.mem.Unmap(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(d.fp.Close())
}
