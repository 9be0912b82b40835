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
	"context"
	"fmt"
	"sync"

	"github.com/cubefs/xkfs/util/exporter"
	"github.com/cubefs/xkfs/util/log"
	"github.com/cubefs/xkfs/util/sleeplock"
	lru "github.com/hashicorp/golang-lru"
	"github.com/juju/errors"
)

const DefaultCacheSize = 64

var (
	metricCacheHit   = exporter.NewCounter("bio_cache_hit")
	metricCacheMiss  = exporter.NewCounter("bio_cache_miss")
	metricBlockRead  = exporter.NewCounter("bio_block_read")
	metricBlockWrite = exporter.NewCounter("bio_block_write")
)

// Buf is a cached block. The caller that got it from Cache.Read holds its
// lock until Cache.Release.
type Buf struct {
	Blockno uint32
	Data    [BSize]byte

	lock  *sleeplock.Lock
	ref   int
	valid bool
	dirty bool
}

func (b *Buf) String() string {
	return fmt.Sprintf("Buf{Blockno(%v),Ref(%v),Valid(%v),Dirty(%v)}", b.Blockno, b.ref, b.valid, b.dirty)
}

// MarkDirty schedules the block to be written back on release.
func (b *Buf) MarkDirty() {
	b.dirty = true
}

// Cache keeps one Buf per block number. Buffers in use live in a map;
// released buffers stay in an LRU so later reads skip the device.
type Cache struct {
	dev   Device
	mu    sync.Mutex
	inuse map[uint32]*Buf
	idle  *lru.Cache
}

func NewCache(dev Device, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	idle, err := lru.New(size)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Cache{dev: dev, inuse: make(map[uint32]*Buf), idle: idle}, nil
}

func (c *Cache) Device() Device {
	return c.dev
}

func (c *Cache) get(blockno uint32) *Buf {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.inuse[blockno]; ok {
		b.ref++
		metricCacheHit.Add(1)
		return b
	}
	if v, ok := c.idle.Get(blockno); ok {
		c.idle.Remove(blockno)
		b := v.(*Buf)
		b.ref = 1
		c.inuse[blockno] = b
		metricCacheHit.Add(1)
		return b
	}
	metricCacheMiss.Add(1)
	b := &Buf{Blockno: blockno, lock: sleeplock.New("buf"), ref: 1}
	c.inuse[blockno] = b
	return b
}

// Read returns the locked buffer for blockno, filled from the device if it
// was not cached.
func (c *Cache) Read(ctx context.Context, blockno uint32) (*Buf, error) {
	if blockno >= c.dev.NumBlocks() {
		return nil, errors.Annotatef(ErrBlockOutOfRange, "block %d of %d", blockno, c.dev.NumBlocks())
	}
	b := c.get(blockno)
	b.lock.Lock(ctx)
	if !b.valid {
		if err := c.dev.ReadBlock(blockno, b.Data[:]); err != nil {
			c.unref(b)
			b.lock.Unlock()
			return nil, errors.Annotatef(err, "bread %d", blockno)
		}
		metricBlockRead.Add(1)
		b.valid = true
	}
	return b, nil
}

// Write writes the buffer to the device now.
func (c *Cache) Write(ctx context.Context, b *Buf) error {
	if !b.lock.HeldBy(ctx) {
		log.LogPanicf("bwrite: buffer %v not locked by caller", b.Blockno)
	}
	if err := c.dev.WriteBlock(b.Blockno, b.Data[:]); err != nil {
		return errors.Annotatef(err, "bwrite %d", b.Blockno)
	}
	metricBlockWrite.Add(1)
	b.dirty = false
	return nil
}

// Release writes a dirty buffer through to the device, unlocks it and drops
// the caller's reference.
func (c *Cache) Release(ctx context.Context, b *Buf) (err error) {
	if !b.lock.HeldBy(ctx) {
		log.LogPanicf("brelse: buffer %v not locked by caller", b.Blockno)
	}
	if b.dirty {
		err = c.Write(ctx, b)
		if err != nil {
			log.LogErrorf("brelse: %v", errors.ErrorStack(err))
			b.valid = false
		}
	}
	c.unref(b)
	b.lock.Unlock()
	return
}

func (c *Cache) unref(b *Buf) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b.ref--
	if b.ref > 0 {
		return
	}
	delete(c.inuse, b.Blockno)
	if b.valid {
		c.idle.Add(b.Blockno, b)
	}
}

// Sync flushes the device.
func (c *Cache) Sync() error {
	return errors.Trace(c.dev.Sync())
}
