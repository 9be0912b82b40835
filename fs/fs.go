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

// Package fs is the on-disk file system: block allocation, the inode cache,
// inode content I/O, directories and path resolution.
//
// Lock order is directory or target inode, then the inode file, then block
// buffers. The inode file is always the innermost inode lock.
package fs

import (
	"context"
	"os"
	"sync"

	"github.com/cubefs/xkfs/bio"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/log"
	"github.com/cubefs/xkfs/util/sleeplock"
	"github.com/juju/errors"
)

// FileSystem is a mounted device.
type FileSystem struct {
	dev    uint32
	cache  *bio.Cache
	sb     proto.Superblock
	opt    *Options
	icache *inodeCache

	devMu   sync.RWMutex
	devices map[int16]Device
}

// Mount reads the superblock and the inode file header from dev. The null
// device and a console on stdin/stdout are registered.
func Mount(ctx context.Context, dev bio.Device, opt *Options) (f *FileSystem, err error) {
	ctx = withKernelOwner(ctx)
	if opt == nil {
		opt = DefaultOptions()
	}
	if err = opt.Validate(); err != nil {
		return
	}
	f = &FileSystem{
		dev:     proto.RootDev,
		opt:     opt,
		devices: make(map[int16]Device),
	}
	if f.cache, err = bio.NewCache(dev, opt.BlockCacheSize); err != nil {
		return nil, err
	}
	if err = f.readSuperblock(ctx); err != nil {
		return nil, err
	}
	log.LogInfof("%v", f.sb.String())

	f.icache = newInodeCache(opt.InodeCacheSize)
	if err = f.initInodeFile(ctx); err != nil {
		return nil, err
	}

	f.RegisterDevice(proto.DevNull, Null{})
	f.RegisterDevice(proto.DevConsole, &Console{In: os.Stdin, Out: os.Stdout})
	log.LogInfof("mount: %v, inode file %v", opt, f.icache.inodeFile)
	return f, nil
}

func (f *FileSystem) readSuperblock(ctx context.Context) error {
	b, err := f.cache.Read(ctx, proto.SuperBlkno)
	if err != nil {
		return errors.Trace(err)
	}
	err = f.sb.UnmarshalBinary(b.Data[:])
	f.cache.Release(ctx, b)
	if err != nil {
		return errors.Trace(err)
	}

	sb := &f.sb
	nblocks := f.cache.Device().NumBlocks()
	switch {
	case sb.Size == 0 || sb.Size > nblocks:
		return errors.Annotatef(proto.ErrBadSuperblock, "size %d on a %d block device", sb.Size, nblocks)
	case sb.BmapStart <= proto.SuperBlkno:
		return errors.Annotatef(proto.ErrBadSuperblock, "bitmap start %d", sb.BmapStart)
	case sb.InodeStart < sb.BmapStart+sb.BitmapBlocks() || sb.InodeStart >= sb.Size:
		return errors.Annotatef(proto.ErrBadSuperblock, "inode start %d", sb.InodeStart)
	}
	return nil
}

// initInodeFile loads the inode file's own dinode, the first record of the
// block at InodeStart.
func (f *FileSystem) initInodeFile(ctx context.Context) error {
	b, err := f.cache.Read(ctx, f.sb.InodeStart)
	if err != nil {
		return errors.Trace(err)
	}
	d := new(proto.Dinode)
	err = d.UnmarshalBinary(b.Data[:])
	f.cache.Release(ctx, b)
	if err != nil {
		return errors.Trace(err)
	}
	if d.Type == proto.TypeFree || d.Extents[0].IsEmpty() || d.Extents[0].StartBlkno != f.sb.InodeStart {
		return errors.Annotatef(proto.ErrBadSuperblock, "inode file %v", d)
	}
	ip := f.icache.inodeFile
	ip.Dev = f.dev
	ip.Inum = proto.InodeFileIno
	ip.ref.Store(1)
	ip.load(d)
	return nil
}

func (f *FileSystem) Superblock() proto.Superblock {
	return f.sb
}

func (f *FileSystem) Options() *Options {
	return f.opt
}

// Sync flushes the block device.
func (f *FileSystem) Sync() error {
	return f.cache.Sync()
}

// Close flushes and closes the block device.
func (f *FileSystem) Close() error {
	if err := f.cache.Sync(); err != nil {
		return err
	}
	return errors.Trace(f.cache.Device().Close())
}

// kernelOwner holds the locks taken while formatting and mounting, before
// any process exists.
const kernelOwner = -3

func withKernelOwner(ctx context.Context) context.Context {
	if sleeplock.Owner(ctx) == sleeplock.NoOwner {
		return sleeplock.WithOwner(ctx, kernelOwner)
	}
	return ctx
}
