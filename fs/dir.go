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

	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/log"
	"github.com/juju/errors"
)

// dirScan calls fn for every entry slot of dp, empty ones included, until
// fn returns true. The caller holds the lock of dp.
func (f *FileSystem) dirScan(ctx context.Context, dp *Inode, fn func(de *proto.Dirent, off uint32) bool) error {
	buf := make([]byte, proto.DirentSize)
	for off := uint32(0); off+proto.DirentSize <= dp.Size; off += proto.DirentSize {
		n, err := f.readData(ctx, dp, buf, off)
		if err != nil {
			return err
		}
		if n != proto.DirentSize {
			log.LogPanicf("dirscan: short read of inode %d at %d", dp.Inum, off)
		}
		de := new(proto.Dirent)
		if err = de.UnmarshalBinary(buf); err != nil {
			return errors.Trace(err)
		}
		if fn(de, off) {
			return nil
		}
	}
	return nil
}

// DirLookup scans directory dp for name and returns a referenced, unlocked
// inode and the byte offset of its entry. The caller holds the lock of dp.
func (f *FileSystem) DirLookup(ctx context.Context, dp *Inode, name string) (*Inode, uint32, error) {
	if dp.Type != proto.TypeDir {
		log.LogPanicf("dirlookup: inode %d is not a directory", dp.Inum)
	}
	var (
		found *proto.Dirent
		at    uint32
	)
	err := f.dirScan(ctx, dp, func(de *proto.Dirent, off uint32) bool {
		if de.Inum != 0 && de.Matches(name) {
			found, at = de, off
			return true
		}
		return false
	})
	if err != nil {
		return nil, 0, err
	}
	if found == nil {
		return nil, 0, proto.ErrNotFound
	}
	return f.Get(dp.Dev, uint32(found.Inum)), at, nil
}

// DirEntries returns the live entries of dp. The caller holds the lock.
func (f *FileSystem) DirEntries(ctx context.Context, dp *Inode) ([]proto.Dirent, error) {
	if dp.Type != proto.TypeDir {
		return nil, proto.ErrNotDir
	}
	var entries []proto.Dirent
	err := f.dirScan(ctx, dp, func(de *proto.Dirent, off uint32) bool {
		if de.Inum != 0 {
			entries = append(entries, *de)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DirLink writes the entry {inum, name} into the first empty slot of dp, or
// appends it. The caller holds the lock of dp.
func (f *FileSystem) DirLink(ctx context.Context, dp *Inode, name string, inum uint32) error {
	if dp.Type != proto.TypeDir {
		return proto.ErrNotDir
	}
	if name == "" {
		return proto.ErrInvalidArg
	}
	if inum > proto.MaxDirentInum {
		return errors.Annotatef(proto.ErrNoInodes, "inum %d", inum)
	}
	ip, _, err := f.DirLookup(ctx, dp, name)
	if err == nil {
		f.Release(ip)
		return proto.ErrExist
	}
	if errors.Cause(err) != proto.ErrNotFound {
		return err
	}

	slot := dp.Size
	err = f.dirScan(ctx, dp, func(de *proto.Dirent, off uint32) bool {
		if de.Inum == 0 {
			slot = off
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	return f.writeDirent(ctx, dp, proto.NewDirent(inum, name), slot)
}

func (f *FileSystem) writeDirent(ctx context.Context, dp *Inode, de *proto.Dirent, off uint32) error {
	data, err := de.MarshalBinary()
	if err != nil {
		return errors.Trace(err)
	}
	_, err = f.writeData(ctx, dp, data, off)
	return err
}
