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

package file

import (
	"context"
	"sync"

	"github.com/cubefs/xkfs/fs"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/log"
	"github.com/juju/errors"
)

// Descriptors is the descriptor table of one process. Descriptor numbers
// are indexes into fds; the lowest free index is always handed out first.
type Descriptors struct {
	t   *Table
	mu  sync.Mutex
	fds []*File
}

// NewDescriptors returns an empty descriptor table backed by t.
func (t *Table) NewDescriptors() *Descriptors {
	return &Descriptors{t: t, fds: make([]*File, t.fs.Options().DescriptorsPerProc)}
}

func (d *Descriptors) Table() *Table {
	return d.t
}

// Get returns the open file behind fd.
func (d *Descriptors) Get(fd int) (*File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getLocked(fd)
}

func (d *Descriptors) getLocked(fd int) (*File, error) {
	if fd < 0 || fd >= len(d.fds) || d.fds[fd] == nil {
		return nil, errors.Annotatef(proto.ErrBadFd, "fd %d", fd)
	}
	return d.fds[fd], nil
}

// InUse returns the number of open descriptors.
func (d *Descriptors) InUse() (n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.fds {
		if f != nil {
			n++
		}
	}
	return
}

// freeFdsLocked returns the n lowest free descriptors, or nil.
func (d *Descriptors) freeFdsLocked(n int) []int {
	fds := make([]int, 0, n)
	for i, f := range d.fds {
		if f == nil {
			fds = append(fds, i)
			if len(fds) == n {
				return fds
			}
		}
	}
	return nil
}

func checkMode(mode int) error {
	if mode&^(proto.AccessModeMask|proto.O_CREATE) != 0 || mode&proto.AccessModeMask == proto.AccessModeMask {
		return errors.Annotatef(proto.ErrInvalidArg, "open mode %#x", mode)
	}
	return nil
}

// Open opens path relative to cwd and returns the new descriptor.
func (d *Descriptors) Open(ctx context.Context, cwd *fs.Inode, path string, mode int) (int, error) {
	if err := checkMode(mode); err != nil {
		return -1, err
	}
	fsys := d.t.fs
	writable := fsys.Options().Writable
	if mode&proto.O_CREATE != 0 && !writable {
		return -1, proto.ErrReadOnly
	}

	var (
		ip  *fs.Inode
		err error
	)
	if mode&proto.O_CREATE != 0 {
		ip, err = fsys.Create(ctx, cwd, path)
	} else {
		ip, err = fsys.Open(ctx, cwd, path)
	}
	if err != nil {
		return -1, err
	}

	f := &File{ip: ip, mode: mode &^ proto.O_CREATE, path: path}
	if err = fsys.Lock(ctx, ip); err != nil {
		fsys.Release(ip)
		return -1, err
	}
	typ := ip.Type
	fsys.Unlock(ctx, ip)
	switch {
	case typ == proto.TypeDir && f.Writable():
		err = errors.Annotatef(proto.ErrIsDir, "open %s", path)
	case typ == proto.TypeFile && f.Writable() && !writable:
		err = errors.Annotatef(proto.ErrReadOnly, "open %s for writing", path)
	}
	if err != nil {
		fsys.Release(ip)
		return -1, err
	}

	fds, err := d.install(f)
	if err != nil {
		fsys.Release(ip)
		return -1, err
	}
	log.LogDebugf("open: path(%v) mode(%#x) fd(%v) %v", path, mode, fds[0], f)
	return fds[0], nil
}

// install places files into the lowest free descriptors and free global
// slots, all or nothing.
func (d *Descriptors) install(files ...*File) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fds := d.freeFdsLocked(len(files))
	if fds == nil {
		return nil, proto.ErrTooManyOpenFiles
	}
	d.t.mu.Lock()
	defer d.t.mu.Unlock()
	gfds := d.t.freeSlotsLocked(len(files))
	if gfds == nil {
		log.LogWarnf("install: no %d free slots in the file table", len(files))
		return nil, proto.ErrFileTableOverflow
	}
	for i, f := range files {
		d.t.installLocked(gfds[i], f)
		d.fds[fds[i]] = f
	}
	return fds, nil
}

// Dup returns a new descriptor for the file behind fd.
func (d *Descriptors) Dup(fd int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.getLocked(fd)
	if err != nil {
		return -1, err
	}
	fds := d.freeFdsLocked(1)
	if fds == nil {
		return -1, proto.ErrTooManyOpenFiles
	}
	d.t.get(f)
	d.fds[fds[0]] = f
	return fds[0], nil
}

// Read reads from fd at its offset and advances it.
func (d *Descriptors) Read(ctx context.Context, fd int, dst []byte) (int, error) {
	f, err := d.Get(fd)
	if err != nil {
		return 0, err
	}
	if !f.Readable() {
		return 0, errors.Annotatef(proto.ErrAccessMode, "read fd %d", fd)
	}
	if f.isPipe {
		return f.pipe.Read(dst)
	}
	fsys := d.t.fs
	if err = fsys.Lock(ctx, f.ip); err != nil {
		return 0, err
	}
	defer fsys.Unlock(ctx, f.ip)
	n, err := fsys.Read(ctx, f.ip, dst, f.off.Load())
	f.off.Add(uint32(n))
	return n, err
}

// Write writes to fd at its offset and advances it.
func (d *Descriptors) Write(ctx context.Context, fd int, src []byte) (int, error) {
	f, err := d.Get(fd)
	if err != nil {
		return 0, err
	}
	if !f.Writable() {
		return 0, errors.Annotatef(proto.ErrAccessMode, "write fd %d", fd)
	}
	if f.isPipe {
		return f.pipe.Write(src)
	}
	fsys := d.t.fs
	if err = fsys.Lock(ctx, f.ip); err != nil {
		return 0, err
	}
	defer fsys.Unlock(ctx, f.ip)
	n, err := fsys.Write(ctx, f.ip, src, f.off.Load())
	f.off.Add(uint32(n))
	return n, err
}

// Seek sets the offset of an inode-backed descriptor. The offset may not
// pass the end of the file.
func (d *Descriptors) Seek(ctx context.Context, fd int, off uint32) error {
	f, err := d.Get(fd)
	if err != nil {
		return err
	}
	if f.isPipe {
		return errors.Annotatef(proto.ErrInvalidArg, "seek on pipe fd %d", fd)
	}
	fsys := d.t.fs
	if err = fsys.Lock(ctx, f.ip); err != nil {
		return err
	}
	defer fsys.Unlock(ctx, f.ip)
	if f.ip.Type != proto.TypeDev && off > f.ip.Size {
		return errors.Annotatef(proto.ErrInvalidOffset, "seek to %d, size %d", off, f.ip.Size)
	}
	f.off.Store(off)
	return nil
}

// Stat returns the metadata of the inode behind fd.
func (d *Descriptors) Stat(ctx context.Context, fd int) (*proto.Stat, error) {
	f, err := d.Get(fd)
	if err != nil {
		return nil, err
	}
	if f.isPipe {
		return nil, errors.Annotatef(proto.ErrInvalidArg, "stat on pipe fd %d", fd)
	}
	fsys := d.t.fs
	if err = fsys.Lock(ctx, f.ip); err != nil {
		return nil, err
	}
	defer fsys.Unlock(ctx, f.ip)
	return f.ip.Stat(), nil
}

// Close removes fd and drops its reference to the open file.
func (d *Descriptors) Close(fd int) error {
	d.mu.Lock()
	f, err := d.getLocked(fd)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.fds[fd] = nil
	d.mu.Unlock()
	d.t.put(f)
	return nil
}

// Pipe creates a pipe and returns its read and write descriptors.
func (d *Descriptors) Pipe() (rfd, wfd int, err error) {
	p := newPipe()
	r := &File{pipe: p, mode: proto.O_RDONLY, path: "pipe:r", isPipe: true}
	w := &File{pipe: p, mode: proto.O_WRONLY, path: "pipe:w", isPipe: true}
	fds, err := d.install(r, w)
	if err != nil {
		p.closeEnd(false)
		p.closeEnd(true)
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

// Fork returns a copy of the table for a child process. Every open file
// gains one reference per copied descriptor.
func (d *Descriptors) Fork() *Descriptors {
	child := d.t.NewDescriptors()
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, f := range d.fds {
		if f != nil {
			d.t.get(f)
			child.fds[i] = f
		}
	}
	return child
}

// CloseAll closes every descriptor.
func (d *Descriptors) CloseAll() {
	d.mu.Lock()
	files := make([]*File, 0, len(d.fds))
	for i, f := range d.fds {
		if f != nil {
			files = append(files, f)
			d.fds[i] = nil
		}
	}
	d.mu.Unlock()
	for _, f := range files {
		d.t.put(f)
	}
}
