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

	"github.com/bits-and-blooms/bitset"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/bitmap"
	"github.com/cubefs/xkfs/util/sleeplock"
	"github.com/google/btree"
	"github.com/juju/errors"
	"golang.org/x/sync/errgroup"
)

const (
	checkOwnerBitmap = -1
	checkOwnerTree   = -2
)

// CheckReport is the result of Check.
type CheckReport struct {
	Inodes       int
	Dirs         int
	Files        int
	Devices      int
	Deleted      int
	OwnedBlocks  uint
	MarkedBlocks uint
	// Leaked are blocks marked in the bitmap that no inode owns, left behind
	// by unlink.
	Leaked   []uint32
	Problems []string
}

func (r *CheckReport) OK() bool {
	return len(r.Problems) == 0
}

func (r *CheckReport) problemf(format string, v ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, v...))
}

type extentItem struct {
	proto.Extent
	inum uint32
}

func (e extentItem) Less(than btree.Item) bool {
	return e.StartBlkno < than.(extentItem).StartBlkno
}

func (e extentItem) end() uint32 {
	return e.StartBlkno + e.NBlocks
}

// Check verifies a quiescent file system: extents stay inside the data area
// and never overlap, sizes fit their extents, the bitmap matches the owned
// blocks and every live inode is reachable from the root.
func (f *FileSystem) Check(ctx context.Context) (*CheckReport, error) {
	r := new(CheckReport)
	dinodes, err := f.loadDinodes(ctx)
	if err != nil {
		return nil, err
	}

	owned := bitset.New(uint(f.sb.Size))
	for b := uint32(0); b < f.sb.InodeStart; b++ {
		owned.Set(uint(b))
	}
	extents := btree.New(8)
	for inum, d := range dinodes {
		if d.IsDeleted() || d.Type == proto.TypeFree {
			r.Deleted++
			continue
		}
		if inum != proto.InodeFileIno {
			r.Inodes++
			switch d.Type {
			case proto.TypeDir:
				r.Dirs++
			case proto.TypeFile:
				r.Files++
			case proto.TypeDev:
				r.Devices++
			}
		}
		f.checkExtents(r, uint32(inum), d, extents, owned)
	}
	r.OwnedBlocks = owned.Count()

	marked := bitset.New(uint(f.sb.Size))
	reachable := bitset.New(uint(len(dinodes)))
	var g errgroup.Group
	g.Go(func() error {
		return f.loadBitmap(sleeplock.WithOwner(ctx, checkOwnerBitmap), marked)
	})
	g.Go(func() error {
		return f.walkTree(sleeplock.WithOwner(ctx, checkOwnerTree), dinodes, reachable, r)
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	r.MarkedBlocks = marked.Count()
	missing := owned.Difference(marked)
	for i, ok := missing.NextSet(0); ok; i, ok = missing.NextSet(i + 1) {
		r.problemf("block %d is in use but free in the bitmap", i)
	}
	leaked := marked.Difference(owned)
	for i, ok := leaked.NextSet(0); ok; i, ok = leaked.NextSet(i + 1) {
		r.Leaked = append(r.Leaked, uint32(i))
	}
	for inum, d := range dinodes {
		if inum == proto.InodeFileIno || d.IsDeleted() || d.Type == proto.TypeFree {
			continue
		}
		if !reachable.Test(uint(inum)) {
			r.problemf("inode %d is not reachable from the root", inum)
		}
	}
	return r, nil
}

func (f *FileSystem) loadDinodes(ctx context.Context) ([]*proto.Dinode, error) {
	ifile := f.icache.inodeFile
	ifile.lock.Lock(ctx)
	defer ifile.lock.Unlock()
	count := ifile.Size / proto.DinodeSize
	dinodes := make([]*proto.Dinode, count)
	for inum := uint32(0); inum < count; inum++ {
		d, err := f.readDinode(ctx, inum, true)
		if err != nil {
			return nil, err
		}
		dinodes[inum] = d
	}
	return dinodes, nil
}

func (f *FileSystem) checkExtents(r *CheckReport, inum uint32, d *proto.Dinode, extents *btree.BTree, owned *bitset.BitSet) {
	ended := false
	for _, e := range d.Extents {
		if e.IsEmpty() {
			ended = true
			continue
		}
		if ended {
			r.problemf("inode %d has an extent after an empty one", inum)
		}
		item := extentItem{Extent: e, inum: inum}
		if e.StartBlkno < f.sb.InodeStart || uint64(e.StartBlkno)+uint64(e.NBlocks) > uint64(f.sb.Size) {
			r.problemf("inode %d extent %v is outside the data area", inum, e)
			continue
		}
		extents.DescendLessOrEqual(item, func(i btree.Item) bool {
			if prev := i.(extentItem); prev.end() > e.StartBlkno {
				r.problemf("inode %d extent %v overlaps inode %d extent %v", inum, e, prev.inum, prev.Extent)
			}
			return false
		})
		extents.AscendGreaterOrEqual(item, func(i btree.Item) bool {
			next := i.(extentItem)
			if next.StartBlkno >= item.end() {
				return false
			}
			if next.StartBlkno != e.StartBlkno {
				r.problemf("inode %d extent %v overlaps inode %d extent %v", inum, e, next.inum, next.Extent)
			}
			return true
		})
		extents.ReplaceOrInsert(item)
		for b := e.StartBlkno; b < item.end(); b++ {
			owned.Set(uint(b))
		}
	}
	if uint64(d.Size) > d.Extents.Capacity() {
		r.problemf("inode %d size %d exceeds extent capacity %d", inum, d.Size, d.Extents.Capacity())
	}
}

func (f *FileSystem) loadBitmap(ctx context.Context, marked *bitset.BitSet) error {
	for b := uint32(0); b < f.sb.Size; b += proto.BitsPerBlock {
		buf, err := f.cache.Read(ctx, f.sb.BitmapBlock(b))
		if err != nil {
			return errors.Trace(err)
		}
		bm := bitmap.ByteBitMap(buf.Data[:])
		for i := uint32(0); i < proto.BitsPerBlock && b+i < f.sb.Size; i++ {
			if !bm.IsBitFree(int(i)) {
				marked.Set(uint(b + i))
			}
		}
		f.cache.Release(ctx, buf)
	}
	return nil
}

func (f *FileSystem) walkTree(ctx context.Context, dinodes []*proto.Dinode, reachable *bitset.BitSet, r *CheckReport) error {
	if len(dinodes) <= proto.RootIno || dinodes[proto.RootIno].Type != proto.TypeDir {
		r.problemf("root inode is not a directory")
		return nil
	}
	var problems []string
	queue := []uint32{proto.RootIno}
	reachable.Set(proto.RootIno)
	for len(queue) > 0 {
		inum := queue[0]
		queue = queue[1:]
		dp := f.Get(f.dev, inum)
		if err := f.Lock(ctx, dp); err != nil {
			f.Release(dp)
			return err
		}
		entries, err := f.DirEntries(ctx, dp)
		f.Unlock(ctx, dp)
		f.Release(dp)
		if err != nil {
			return err
		}
		for _, de := range entries {
			child := uint32(de.Inum)
			name := de.NameString()
			if child >= uint32(len(dinodes)) || dinodes[child].IsDeleted() || dinodes[child].Type == proto.TypeFree {
				problems = append(problems, fmt.Sprintf("directory %d entry %q points at free inode %d", inum, name, child))
				continue
			}
			if name == "." {
				if child != inum {
					problems = append(problems, fmt.Sprintf("directory %d has \".\" pointing at %d", inum, child))
				}
				continue
			}
			if name == ".." || reachable.Test(uint(child)) {
				continue
			}
			reachable.Set(uint(child))
			if dinodes[child].Type == proto.TypeDir {
				queue = append(queue, child)
			}
		}
	}
	r.Problems = append(r.Problems, problems...)
	return nil
}
