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

	"github.com/cubefs/xkfs/bio"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/bitmap"
	"github.com/cubefs/xkfs/util/log"
	"github.com/juju/errors"
)

const (
	DefaultInodeFileBlocks = 4
	MinFormatBlocks        = 16
	ConsolePath            = "/console"
)

type FormatOptions struct {
	// InodeFileBlocks is the size of the first extent of the inode file.
	InodeFileBlocks uint32
	// Console adds a console device file at /console.
	Console bool
}

// Format writes an empty file system over the whole device: boot block,
// superblock, bitmap, an inode file holding itself and the root directory,
// and the root directory with "." and "..".
func Format(ctx context.Context, dev bio.Device, opt FormatOptions) (sb proto.Superblock, err error) {
	if opt.InodeFileBlocks == 0 {
		opt.InodeFileBlocks = DefaultInodeFileBlocks
	}
	size := dev.NumBlocks()
	if size < MinFormatBlocks {
		return sb, errors.Annotatef(proto.ErrInvalidArg, "device of %d blocks is too small", size)
	}
	sb = proto.Superblock{Size: size, BmapStart: proto.SuperBlkno + 1}
	sb.InodeStart = sb.BmapStart + sb.BitmapBlocks()
	sb.NBlocks = size - sb.InodeStart
	rootBlkno := sb.InodeStart + opt.InodeFileBlocks
	used := rootBlkno + 1
	if used >= size || opt.InodeFileBlocks > proto.BitsPerBlock {
		return sb, errors.Annotatef(proto.ErrInvalidArg, "inode file of %d blocks does not fit", opt.InodeFileBlocks)
	}

	zero := make([]byte, proto.BlockSize)
	for b := uint32(0); b < used; b++ {
		if err = dev.WriteBlock(b, zero); err != nil {
			return sb, errors.Trace(err)
		}
	}

	block := make([]byte, proto.BlockSize)
	data, err := sb.MarshalBinary()
	if err != nil {
		return sb, errors.Trace(err)
	}
	copy(block, data)
	if err = dev.WriteBlock(proto.SuperBlkno, block); err != nil {
		return sb, errors.Trace(err)
	}

	for b := uint32(0); b < sb.BitmapBlocks(); b++ {
		bm := bitmap.ByteBitMap(make([]byte, proto.BlockSize))
		for blk := b * proto.BitsPerBlock; blk < used && blk < (b+1)*proto.BitsPerBlock; blk++ {
			bm.SetBit(int(blk % proto.BitsPerBlock))
		}
		if err = dev.WriteBlock(sb.BmapStart+b, bm); err != nil {
			return sb, errors.Trace(err)
		}
	}

	ifile := proto.NewDinode(proto.TypeFile)
	ifile.Size = 2 * proto.DinodeSize
	ifile.Extents[0] = proto.Extent{StartBlkno: sb.InodeStart, NBlocks: opt.InodeFileBlocks}
	root := proto.NewDinode(proto.TypeDir)
	root.Size = 2 * proto.DirentSize
	root.Extents[0] = proto.Extent{StartBlkno: rootBlkno, NBlocks: 1}

	block = make([]byte, proto.BlockSize)
	for i, d := range []*proto.Dinode{ifile, root} {
		if data, err = d.MarshalBinary(); err != nil {
			return sb, errors.Trace(err)
		}
		copy(block[i*proto.DinodeSize:], data)
	}
	if err = dev.WriteBlock(sb.InodeStart, block); err != nil {
		return sb, errors.Trace(err)
	}

	block = make([]byte, proto.BlockSize)
	for i, name := range []string{".", ".."} {
		if data, err = proto.NewDirent(proto.RootIno, name).MarshalBinary(); err != nil {
			return sb, errors.Trace(err)
		}
		copy(block[i*proto.DirentSize:], data)
	}
	if err = dev.WriteBlock(rootBlkno, block); err != nil {
		return sb, errors.Trace(err)
	}
	if err = dev.Sync(); err != nil {
		return sb, errors.Trace(err)
	}
	log.LogInfof("mkfs: %v", sb.String())

	if opt.Console {
		if err = addConsole(ctx, dev); err != nil {
			return sb, err
		}
	}
	return sb, nil
}

func addConsole(ctx context.Context, dev bio.Device) error {
	ctx = withKernelOwner(ctx)
	mopt := DefaultOptions()
	mopt.Writable = true
	f, err := Mount(ctx, dev, mopt)
	if err != nil {
		return err
	}
	if err = f.Mknod(ctx, nil, ConsolePath, proto.DevConsole); err != nil {
		return err
	}
	return f.Sync()
}
