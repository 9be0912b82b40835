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

package proc

import (
	"github.com/cubefs/xkfs/fs"
	"github.com/cubefs/xkfs/proto"
	"github.com/juju/errors"
)

// enter is run at the start of every call a process makes.
func (p *Proc) enter() error {
	if p.Killed() {
		return errors.Annotatef(proto.ErrKilled, "pid %d", p.pid)
	}
	return nil
}

func (p *Proc) Open(path string, mode int) (int, error) {
	if err := p.enter(); err != nil {
		return -1, err
	}
	return p.fdt.Open(p.ctx, p.cwd, path, mode)
}

func (p *Proc) Read(fd int, dst []byte) (int, error) {
	if err := p.enter(); err != nil {
		return -1, err
	}
	return p.fdt.Read(p.ctx, fd, dst)
}

func (p *Proc) Write(fd int, src []byte) (int, error) {
	if err := p.enter(); err != nil {
		return -1, err
	}
	return p.fdt.Write(p.ctx, fd, src)
}

func (p *Proc) Close(fd int) error {
	if err := p.enter(); err != nil {
		return err
	}
	return p.fdt.Close(fd)
}

func (p *Proc) Dup(fd int) (int, error) {
	if err := p.enter(); err != nil {
		return -1, err
	}
	return p.fdt.Dup(fd)
}

func (p *Proc) Fstat(fd int) (*proto.Stat, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	return p.fdt.Stat(p.ctx, fd)
}

func (p *Proc) Seek(fd int, off uint32) error {
	if err := p.enter(); err != nil {
		return err
	}
	return p.fdt.Seek(p.ctx, fd, off)
}

// Pipe returns the read and write descriptors of a new pipe.
func (p *Proc) Pipe() (int, int, error) {
	if err := p.enter(); err != nil {
		return -1, -1, err
	}
	return p.fdt.Pipe()
}

func (p *Proc) Unlink(path string) error {
	if err := p.enter(); err != nil {
		return err
	}
	return p.t.fs.Unlink(p.ctx, p.cwd, path)
}

func (p *Proc) Mkdir(path string) error {
	if err := p.enter(); err != nil {
		return err
	}
	return p.t.fs.Mkdir(p.ctx, p.cwd, path)
}

// Chdir makes the directory at path the working directory.
func (p *Proc) Chdir(path string) error {
	if err := p.enter(); err != nil {
		return err
	}
	fsys := p.t.fs
	ip, err := fsys.Resolve(p.ctx, p.cwd, path)
	if err != nil {
		return err
	}
	if err = fsys.Lock(p.ctx, ip); err != nil {
		fsys.Release(ip)
		return err
	}
	isDir := ip.IsDir()
	fsys.Unlock(p.ctx, ip)
	if !isDir {
		fsys.Release(ip)
		return errors.Annotatef(proto.ErrNotDir, "chdir %s", path)
	}
	old := p.cwd
	p.cwd = ip
	fsys.Release(old)
	return nil
}

// Cwd returns the working directory inode.
func (p *Proc) Cwd() *fs.Inode {
	return p.cwd
}
