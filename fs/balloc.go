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
	"github.com/cubefs/xkfs/util/bitmap"
	"github.com/cubefs/xkfs/util/exporter"
	"github.com/cubefs/xkfs/util/log"
	"github.com/juju/errors"
)

var (
	metricBlockAlloc = exporter.NewCounter("fs_block_alloc")
	metricBlockFree  = exporter.NewCounter("fs_block_free")
)

// balloc allocates n contiguous blocks, first fit, looking at one bitmap
// sector at a time. A run never crosses a sector. Running out of space is
// fatal. The contents of the returned blocks are undefined.
func (f *FileSystem) balloc(ctx context.Context, n uint32) (uint32, error) {
	if n == 0 || n > proto.BitsPerBlock {
		log.LogPanicf("balloc: bad run length %d", n)
	}
	for b := uint32(0); b < f.sb.Size; b += proto.BitsPerBlock {
		buf, err := f.cache.Read(ctx, f.sb.BitmapBlock(b))
		if err != nil {
			return 0, errors.Trace(err)
		}
		limit := f.sb.Size - b
		if limit > proto.BitsPerBlock {
			limit = proto.BitsPerBlock
		}
		bm := bitmap.ByteBitMap(buf.Data[:])
		start, err := bm.FindFreeRun(int(n), int(limit))
		if err != nil {
			f.cache.Release(ctx, buf)
			continue
		}
		bm.SetRange(start, int(n))
		buf.MarkDirty()
		if err = f.cache.Release(ctx, buf); err != nil {
			return 0, errors.Trace(err)
		}
		metricBlockAlloc.Add(int64(n))
		log.LogDebugf("balloc: blocks [%d, %d)", b+uint32(start), b+uint32(start)+n)
		return b + uint32(start), nil
	}
	log.LogPanicf("balloc: can't allocate %d contiguous blocks", n)
	return 0, nil
}

// bfree returns n blocks starting at start. The run must live in one bitmap
// sector and every block must be allocated.
func (f *FileSystem) bfree(ctx context.Context, start, n uint32) error {
	if n < 1 {
		log.LogPanicf("bfree: freeing less than 1 block")
	}
	if f.sb.BitmapBlock(start) != f.sb.BitmapBlock(start+n-1) {
		log.LogPanicf("bfree: blocks [%d, %d) live in different bitmap sectors", start, start+n)
	}
	buf, err := f.cache.Read(ctx, f.sb.BitmapBlock(start))
	if err != nil {
		return errors.Trace(err)
	}
	bm := bitmap.ByteBitMap(buf.Data[:])
	if err = bm.ClearRange(int(start%proto.BitsPerBlock), int(n)); err != nil {
		f.cache.Release(ctx, buf)
		log.LogPanicf("bfree: freeing free block in [%d, %d): %v", start, start+n, err)
	}
	buf.MarkDirty()
	metricBlockFree.Add(int64(n))
	return errors.Trace(f.cache.Release(ctx, buf))
}
