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
	"fmt"

	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/atomicutil"
	"github.com/cubefs/xkfs/util/log"
	"github.com/cubefs/xkfs/util/sleeplock"
	"github.com/juju/errors"
)

// Inode is the in-memory copy of a dinode. Dev, Inum and the reference
// count belong to the inode cache; the remaining fields are valid only while
// the inode lock is held.
type Inode struct {
	Dev  uint32
	Inum uint32

	ref   atomicutil.Int32
	valid bool
	lock  *sleeplock.Lock

	Type    int16
	DevID   int16
	Size    uint32
	Extents proto.Extents

	persistedSize uint32
}

func newInode(name string) *Inode {
	return &Inode{lock: sleeplock.New(name)}
}

func (ip *Inode) String() string {
	return fmt.Sprintf("Inode{Dev(%v),Inum(%v),Ref(%v),Valid(%v),Type(%v),Size(%v),Extents(%v)}",
		ip.Dev, ip.Inum, ip.ref.Load(), ip.valid, proto.TypeName(ip.Type), ip.Size, ip.Extents.Len())
}

// Ref returns the number of holders of the cache entry.
func (ip *Inode) Ref() int32 {
	return ip.ref.Load()
}

// HeldBy reports whether the process in ctx holds the inode lock.
func (ip *Inode) HeldBy(ctx context.Context) bool {
	return ip.lock.HeldBy(ctx)
}

func (ip *Inode) IsDir() bool {
	return ip.Type == proto.TypeDir
}

func (ip *Inode) load(d *proto.Dinode) {
	ip.Type = d.Type
	ip.DevID = d.DevID
	ip.Size = d.Size
	ip.Extents = d.Extents
	ip.persistedSize = d.Size
	ip.valid = true
}

func (ip *Inode) dinode() *proto.Dinode {
	return &proto.Dinode{Type: ip.Type, DevID: ip.DevID, Size: ip.Size, Extents: ip.Extents}
}

// Stat returns the inode metadata. The caller must hold the lock.
func (ip *Inode) Stat() *proto.Stat {
	return &proto.Stat{Dev: ip.Dev, Ino: ip.Inum, Type: ip.Type, Size: ip.Size}
}

// Lock takes the inode lock, reading the dinode from the inode file when the
// cache entry is not yet valid.
func (f *FileSystem) Lock(ctx context.Context, ip *Inode) error {
	return f.lockInode(ctx, ip, false)
}

// lockInode locks ip. ifileHeld tells hydration the caller already holds
// the inode file lock.
func (f *FileSystem) lockInode(ctx context.Context, ip *Inode, ifileHeld bool) error {
	if ip == nil || ip.ref.Load() < 1 {
		log.LogPanicf("locki: %v", ip)
	}
	ip.lock.Lock(ctx)
	if ip.valid {
		return nil
	}
	d, err := f.readDinode(ctx, ip.Inum, ifileHeld || ip == f.icache.inodeFile)
	if err != nil {
		ip.lock.Unlock()
		return err
	}
	if d.Type == proto.TypeFree {
		ip.lock.Unlock()
		log.LogPanicf("locki: inode %d has no type", ip.Inum)
	}
	ip.load(d)
	return nil
}

// Unlock releases the inode lock, which the caller must hold.
func (f *FileSystem) Unlock(ctx context.Context, ip *Inode) {
	if ip == nil || !ip.lock.HeldBy(ctx) || ip.ref.Load() < 1 {
		log.LogPanicf("unlocki: %v", ip)
	}
	ip.lock.Unlock()
}

// Dup adds a reference to ip.
func (f *FileSystem) Dup(ip *Inode) *Inode {
	f.icache.mu.Lock()
	ip.ref.Inc()
	f.icache.mu.Unlock()
	return ip
}

// Release drops a reference. The last release makes the cache slot
// recyclable.
func (f *FileSystem) Release(ip *Inode) {
	f.icache.mu.Lock()
	defer f.icache.mu.Unlock()
	if ip.ref.Load() < 1 {
		log.LogPanicf("irelease: %v", ip)
	}
	if ip.ref.Dec() == 0 {
		ip.Type = proto.TypeFree
		ip.valid = false
		metricInodesCached.Add(-1)
	}
}

// readDinode reads record inum of the inode file.
func (f *FileSystem) readDinode(ctx context.Context, inum uint32, ifileHeld bool) (*proto.Dinode, error) {
	ifile := f.icache.inodeFile
	if !ifileHeld {
		ifile.lock.Lock(ctx)
		defer ifile.lock.Unlock()
	}
	buf := make([]byte, proto.DinodeSize)
	d := new(proto.Dinode)
	n, err := f.readData(ctx, ifile, buf, proto.InodeOffset(inum))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if n < proto.DinodeSize {
		return d, nil
	}
	if err = d.UnmarshalBinary(buf); err != nil {
		return nil, errors.Trace(err)
	}
	return d, nil
}

// writeDinode writes record inum of the inode file. The caller holds the
// inode file lock.
func (f *FileSystem) writeDinode(ctx context.Context, inum uint32, d *proto.Dinode) error {
	data, err := d.MarshalBinary()
	if err != nil {
		return errors.Trace(err)
	}
	_, err = f.writeData(ctx, f.icache.inodeFile, data, proto.InodeOffset(inum))
	return err
}

// updatePersisted rewrites the dinode of ip when its size changed since the
// last write. The caller holds the lock of ip.
func (f *FileSystem) updatePersisted(ctx context.Context, ip *Inode) error {
	if ip.Size == ip.persistedSize {
		return nil
	}
	ifile := f.icache.inodeFile
	if ip != ifile {
		ifile.lock.Lock(ctx)
		defer ifile.lock.Unlock()
	}
	// Set before writing: growing the inode file persists inode 0 again.
	old := ip.persistedSize
	ip.persistedSize = ip.Size
	if err := f.writeDinode(ctx, ip.Inum, ip.dinode()); err != nil {
		ip.persistedSize = old
		return err
	}
	return nil
}
