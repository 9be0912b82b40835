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
	"sync"

	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/exporter"
	"github.com/cubefs/xkfs/util/log"
)

var (
	metricInodeHit     = exporter.NewCounter("fs_icache_hit")
	metricInodeMiss    = exporter.NewCounter("fs_icache_miss")
	metricInodesCached = exporter.NewGauge("fs_icache_inodes")
)

// inodeCache is a fixed arena of inodes plus the inode file, which never
// leaves the cache. mu guards slot assignment and reference counts and is
// never held across I/O.
type inodeCache struct {
	mu        sync.Mutex
	inodes    []*Inode
	inodeFile *Inode
}

func newInodeCache(size int) *inodeCache {
	c := &inodeCache{
		inodes:    make([]*Inode, size),
		inodeFile: newInode("inodefile"),
	}
	for i := range c.inodes {
		c.inodes[i] = newInode("inode")
	}
	return c
}

// Get returns the cache entry for (dev, inum) with one more reference,
// without reading the disk. Running out of slots is fatal.
func (f *FileSystem) Get(dev, inum uint32) *Inode {
	c := f.icache
	c.mu.Lock()
	defer c.mu.Unlock()

	if inum == proto.InodeFileIno {
		c.inodeFile.ref.Inc()
		return c.inodeFile
	}

	var empty *Inode
	for _, ip := range c.inodes {
		if ip.ref.Load() > 0 && ip.Dev == dev && ip.Inum == inum {
			ip.ref.Inc()
			metricInodeHit.Add(1)
			return ip
		}
		if empty == nil && ip.ref.Load() == 0 {
			empty = ip
		}
	}
	if empty == nil {
		log.LogPanicf("iget: no inodes")
	}
	metricInodeMiss.Add(1)
	metricInodesCached.Add(1)
	empty.Dev = dev
	empty.Inum = inum
	empty.valid = false
	empty.ref.Store(1)
	return empty
}

// Root returns a reference to the root directory.
func (f *FileSystem) Root() *Inode {
	return f.Get(f.dev, proto.RootIno)
}

// InodeFile returns a reference to the inode file.
func (f *FileSystem) InodeFile() *Inode {
	return f.Get(f.dev, proto.InodeFileIno)
}

// CachedInodes returns the number of cache slots in use.
func (f *FileSystem) CachedInodes() (n int) {
	c := f.icache
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ip := range c.inodes {
		if ip.ref.Load() > 0 {
			n++
		}
	}
	return
}
