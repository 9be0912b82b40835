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
	"math"

	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/log"
	"github.com/juju/errors"
)

// Read copies up to len(dst) bytes at off from ip. Reads stop at the end of
// the file; a read at or after it returns 0. The caller must hold the lock.
func (f *FileSystem) Read(ctx context.Context, ip *Inode, dst []byte, off uint32) (int, error) {
	if !ip.lock.HeldBy(ctx) {
		log.LogPanicf("readi: inode %d not locked by caller", ip.Inum)
	}
	if ip.Type == proto.TypeDev {
		dev, err := f.device(ip.DevID)
		if err != nil {
			return 0, err
		}
		return dev.Read(ctx, ip, dst)
	}
	return f.readData(ctx, ip, dst, off)
}

func (f *FileSystem) readData(ctx context.Context, ip *Inode, dst []byte, off uint32) (int, error) {
	if uint64(off)+uint64(len(dst)) > math.MaxUint32 {
		return 0, proto.ErrOverflow
	}
	if off >= ip.Size {
		return 0, nil
	}
	n := uint32(len(dst))
	if n > ip.Size-off {
		n = ip.Size - off
	}
	var m uint32
	for tot := uint32(0); tot < n; tot, off = tot+m, off+m {
		blkno, boff := f.locate(ip, off)
		m = min32(n-tot, proto.BlockSize-boff)
		b, err := f.cache.Read(ctx, blkno)
		if err != nil {
			return int(tot), errors.Trace(err)
		}
		copy(dst[tot:tot+m], b.Data[boff:boff+m])
		f.cache.Release(ctx, b)
	}
	return int(n), nil
}

// Write copies src into ip at off, growing the file when the write runs
// past its end. The caller must hold the lock.
func (f *FileSystem) Write(ctx context.Context, ip *Inode, src []byte, off uint32) (int, error) {
	if !ip.lock.HeldBy(ctx) {
		log.LogPanicf("writei: inode %d not locked by caller", ip.Inum)
	}
	if ip.Type == proto.TypeDev {
		dev, err := f.device(ip.DevID)
		if err != nil {
			return 0, err
		}
		return dev.Write(ctx, ip, src)
	}
	return f.writeData(ctx, ip, src, off)
}

func (f *FileSystem) writeData(ctx context.Context, ip *Inode, src []byte, off uint32) (int, error) {
	end := uint64(off) + uint64(len(src))
	if end >= uint64(proto.SizeDeleted) {
		return 0, proto.ErrOverflow
	}
	if off > ip.Size {
		return 0, errors.Annotatef(proto.ErrInvalidOffset, "offset %d, size %d", off, ip.Size)
	}
	if len(src) == 0 {
		return 0, nil
	}

	if capacity := ip.Extents.Capacity(); end > capacity {
		need := uint32((end - capacity + proto.BlockSize - 1) / proto.BlockSize)
		idx := ip.Extents.Len()
		if idx == proto.NumExtents || need > proto.BitsPerBlock {
			return 0, errors.Annotatef(proto.ErrFileTooLarge, "inode %d needs %d more blocks", ip.Inum, need)
		}
		start, err := f.balloc(ctx, need)
		if err != nil {
			return 0, err
		}
		ip.Extents[idx] = proto.Extent{StartBlkno: start, NBlocks: need}
	}
	if end > uint64(ip.Size) {
		ip.Size = uint32(end)
		if err := f.updatePersisted(ctx, ip); err != nil {
			return 0, err
		}
	}

	n := uint32(len(src))
	var m uint32
	for tot := uint32(0); tot < n; tot, off = tot+m, off+m {
		blkno, boff := f.locate(ip, off)
		m = min32(n-tot, proto.BlockSize-boff)
		b, err := f.cache.Read(ctx, blkno)
		if err != nil {
			return int(tot), errors.Trace(err)
		}
		copy(b.Data[boff:boff+m], src[tot:tot+m])
		b.MarkDirty()
		if err = f.cache.Release(ctx, b); err != nil {
			return int(tot), errors.Trace(err)
		}
	}
	return int(n), nil
}

// locate maps a byte offset of ip to a disk block and an offset inside it.
func (f *FileSystem) locate(ip *Inode, off uint32) (blkno, boff uint32) {
	idx, extOff, ok := ip.Extents.Locate(uint64(off))
	if !ok {
		log.LogPanicf("locate: offset %d past the extents of %v", off, ip)
	}
	return ip.Extents[idx].StartBlkno + extOff/proto.BlockSize, extOff % proto.BlockSize
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
