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

// Package file is the descriptor layer: a global table of open files shared
// by every process, per-process descriptor tables, and pipes.
package file

import (
	"fmt"
	"sync"

	"github.com/cubefs/xkfs/fs"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/atomicutil"
	"github.com/cubefs/xkfs/util/exporter"
)

var metricOpenFiles = exporter.NewGauge("file_open")

// File is an open file object, an entry of the global table. Descriptors
// created by dup and fork share it, offset included.
type File struct {
	gfd    int
	ref    atomicutil.Int32
	ip     *fs.Inode
	pipe   *Pipe
	mode   int
	off    atomicutil.Uint32
	path   string
	isPipe bool
}

func (f *File) String() string {
	return fmt.Sprintf("File{Gfd(%v),Ref(%v),Pipe(%v),Mode(%v),Off(%v),Path(%v)}",
		f.gfd, f.ref.Load(), f.isPipe, f.mode, f.off.Load(), f.path)
}

func (f *File) Readable() bool {
	return f.mode&proto.AccessModeMask != proto.O_WRONLY
}

func (f *File) Writable() bool {
	return f.mode&proto.AccessModeMask != proto.O_RDONLY
}

func (f *File) IsPipe() bool {
	return f.isPipe
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Ref() int32 {
	return f.ref.Load()
}

func (f *File) Offset() uint32 {
	return f.off.Load()
}

// Inode returns the inode behind the file, nil for a pipe.
func (f *File) Inode() *fs.Inode {
	return f.ip
}

// Table is the global open file table.
type Table struct {
	fs    *fs.FileSystem
	mu    sync.Mutex
	files []*File
}

func NewTable(f *fs.FileSystem) *Table {
	return &Table{fs: f, files: make([]*File, f.Options().FileTableSize)}
}

func (t *Table) FileSystem() *fs.FileSystem {
	return t.fs
}

// InUse returns the number of open file objects.
func (t *Table) InUse() (n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.files {
		if f != nil {
			n++
		}
	}
	return
}

// freeSlotsLocked returns the first n free slots, or nil.
func (t *Table) freeSlotsLocked(n int) []int {
	slots := make([]int, 0, n)
	for i, f := range t.files {
		if f == nil {
			slots = append(slots, i)
			if len(slots) == n {
				return slots
			}
		}
	}
	return nil
}

func (t *Table) installLocked(gfd int, f *File) {
	f.gfd = gfd
	f.ref.Store(1)
	t.files[gfd] = f
	metricOpenFiles.Add(1)
}

// get adds a reference to f.
func (t *Table) get(f *File) {
	t.mu.Lock()
	f.ref.Inc()
	t.mu.Unlock()
	if f.isPipe {
		f.pipe.dupEnd(f.Writable())
	}
}

// put drops one descriptor's reference to f. A pipe end loses one open
// count per descriptor; the last reference frees the slot and the inode.
func (t *Table) put(f *File) {
	if f.isPipe {
		f.pipe.closeEnd(f.Writable())
	}
	t.mu.Lock()
	ref := f.ref.Dec()
	if ref == 0 {
		t.files[f.gfd] = nil
		metricOpenFiles.Add(-1)
	}
	t.mu.Unlock()
	if ref == 0 && !f.isPipe {
		t.fs.Release(f.ip)
	}
}
