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

// Open resolves path and returns a referenced inode, validated and unlocked.
// A missing file is created when the file system is writable.
func (f *FileSystem) Open(ctx context.Context, cwd *Inode, path string) (*Inode, error) {
	ip, err := f.Resolve(ctx, cwd, path)
	if err != nil {
		if errors.Cause(err) != proto.ErrNotFound || !f.opt.Writable {
			return nil, err
		}
		if ip, err = f.create(ctx, cwd, path, proto.TypeFile, proto.DevNone); err != nil {
			return nil, err
		}
	}
	if err = f.Lock(ctx, ip); err != nil {
		f.Release(ip)
		return nil, err
	}
	f.Unlock(ctx, ip)
	return ip, nil
}

// Create makes a regular file at path and returns it referenced and
// unlocked. An existing entry is returned as is.
func (f *FileSystem) Create(ctx context.Context, cwd *Inode, path string) (*Inode, error) {
	if !f.opt.Writable {
		return nil, proto.ErrReadOnly
	}
	return f.create(ctx, cwd, path, proto.TypeFile, proto.DevNone)
}

// Mkdir makes a directory at path holding "." and "..".
func (f *FileSystem) Mkdir(ctx context.Context, cwd *Inode, path string) error {
	if !f.opt.Writable {
		return proto.ErrReadOnly
	}
	ip, err := f.create(ctx, cwd, path, proto.TypeDir, proto.DevNone)
	if err != nil {
		return err
	}
	f.Release(ip)
	return nil
}

// Mknod makes a device file at path served by the device registered as
// devid.
func (f *FileSystem) Mknod(ctx context.Context, cwd *Inode, path string, devid int16) error {
	if !f.opt.Writable {
		return proto.ErrReadOnly
	}
	ip, err := f.create(ctx, cwd, path, proto.TypeDev, devid)
	if err != nil {
		return err
	}
	f.Release(ip)
	return nil
}

func (f *FileSystem) create(ctx context.Context, cwd *Inode, path string, typ, devid int16) (ip *Inode, err error) {
	dp, name, err := f.ResolveParent(ctx, cwd, path)
	if err != nil {
		return nil, err
	}
	defer f.Release(dp)
	if err = f.Lock(ctx, dp); err != nil {
		return nil, err
	}
	defer f.Unlock(ctx, dp)

	if ip, _, err = f.DirLookup(ctx, dp, name); err == nil {
		if typ == proto.TypeFile {
			return ip, nil
		}
		f.Release(ip)
		return nil, errors.Annotatef(proto.ErrExist, "%q", path)
	}
	if errors.Cause(err) != proto.ErrNotFound {
		return nil, err
	}

	inum, err := f.allocDinode(ctx, typ, devid)
	if err != nil {
		return nil, err
	}
	ip = f.Get(dp.Dev, inum)
	if typ == proto.TypeDir {
		if err = f.initDir(ctx, ip, dp.Inum); err != nil {
			f.Release(ip)
			f.freeDinode(ctx, inum)
			return nil, err
		}
	}
	if err = f.DirLink(ctx, dp, name, inum); err != nil {
		f.Release(ip)
		f.freeDinode(ctx, inum)
		return nil, err
	}
	log.LogDebugf("create: %q inum %d type %v", path, inum, proto.TypeName(typ))
	return ip, nil
}

func (f *FileSystem) initDir(ctx context.Context, ip *Inode, parent uint32) error {
	if err := f.Lock(ctx, ip); err != nil {
		return err
	}
	defer f.Unlock(ctx, ip)
	if err := f.DirLink(ctx, ip, ".", ip.Inum); err != nil {
		return err
	}
	return f.DirLink(ctx, ip, "..", parent)
}

// allocDinode writes a fresh dinode into the first deleted slot of the inode
// file, or appends one, and returns its number.
func (f *FileSystem) allocDinode(ctx context.Context, typ, devid int16) (uint32, error) {
	ifile := f.icache.inodeFile
	ifile.lock.Lock(ctx)
	defer ifile.lock.Unlock()

	count := ifile.Size / proto.DinodeSize
	inum := count
	for i := uint32(proto.RootIno + 1); i < count; i++ {
		d, err := f.readDinode(ctx, i, true)
		if err != nil {
			return 0, err
		}
		if d.IsDeleted() {
			inum = i
			break
		}
	}
	if inum > proto.MaxDirentInum {
		return 0, proto.ErrNoInodes
	}
	d := proto.NewDinode(typ)
	d.DevID = devid
	if err := f.writeDinode(ctx, inum, d); err != nil {
		return 0, err
	}
	return inum, nil
}

func (f *FileSystem) freeDinode(ctx context.Context, inum uint32) {
	ifile := f.icache.inodeFile
	ifile.lock.Lock(ctx)
	defer ifile.lock.Unlock()
	if err := f.writeDinode(ctx, inum, proto.DeletedDinode()); err != nil {
		log.LogErrorf("free dinode %d: %v", inum, err)
	}
}

// Unlink removes the entry for path and marks its dinode deleted. Only
// regular files with no other reference can be unlinked. Data blocks are
// returned to the allocator only when ReclaimOnUnlink is set.
func (f *FileSystem) Unlink(ctx context.Context, cwd *Inode, path string) error {
	if !f.opt.Writable {
		return proto.ErrReadOnly
	}
	dp, name, err := f.ResolveParent(ctx, cwd, path)
	if err != nil {
		return err
	}
	defer f.Release(dp)
	if err = f.Lock(ctx, dp); err != nil {
		return err
	}
	defer f.Unlock(ctx, dp)

	if name == "." || name == ".." {
		return proto.ErrInvalidArg
	}
	ip, off, err := f.DirLookup(ctx, dp, name)
	if err != nil {
		return err
	}
	defer f.Release(ip)
	if err = f.Lock(ctx, ip); err != nil {
		return err
	}
	defer f.Unlock(ctx, ip)

	switch {
	case ip.Type == proto.TypeDir:
		return proto.ErrIsDir
	case ip.Type != proto.TypeFile:
		return proto.ErrNotFile
	case ip.Ref() > 1:
		return errors.Annotatef(proto.ErrBusy, "%q has %d references", path, ip.Ref())
	}

	if err = f.writeDirent(ctx, dp, &proto.Dirent{}, off); err != nil {
		return err
	}
	if f.opt.ReclaimOnUnlink {
		for _, e := range ip.Extents {
			if e.IsEmpty() {
				break
			}
			if err = f.bfree(ctx, e.StartBlkno, e.NBlocks); err != nil {
				return err
			}
		}
	}
	f.freeDinode(ctx, ip.Inum)
	ip.valid = false
	ip.Type = proto.TypeFree
	ip.Size = 0
	ip.Extents.Reset()
	log.LogDebugf("unlink: %q inum %d", path, ip.Inum)
	return nil
}
