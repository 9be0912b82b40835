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

// Package proc models the processes that own descriptor tables and a
// working directory, and exposes the file system calls they make.
package proc

import (
	"context"
	"fmt"
	"sync"

	"github.com/cubefs/xkfs/file"
	"github.com/cubefs/xkfs/fs"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/atomicutil"
	"github.com/cubefs/xkfs/util/exporter"
	"github.com/cubefs/xkfs/util/log"
	"github.com/cubefs/xkfs/util/sleeplock"
	"github.com/juju/errors"
)

type State uint8

const (
	Unused State = iota
	Running
	Zombie
)

func (s State) String() string {
	switch s {
	case Unused:
		return "unused"
	case Running:
		return "running"
	case Zombie:
		return "zombie"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

var metricProcs = exporter.NewGauge("proc_live")

// Proc is one process. Its descriptor table and working directory are
// only touched by the process itself; state and parent belong to the
// process table.
type Proc struct {
	pid    int
	name   string
	parent *Proc
	state  State
	killed atomicutil.Int32
	ctx    context.Context

	t   *Table
	fdt *file.Descriptors
	cwd *fs.Inode
}

func (p *Proc) String() string {
	return fmt.Sprintf("Proc{Pid(%v),Name(%v)}", p.pid, p.name)
}

func (p *Proc) Pid() int {
	return p.pid
}

func (p *Proc) Name() string {
	return p.name
}

func (p *Proc) Descriptors() *file.Descriptors {
	return p.fdt
}

// Context returns the context the process makes its calls with. It carries
// the pid as the owner of the sleep locks the process takes.
func (p *Proc) Context() context.Context {
	return p.ctx
}

func (p *Proc) Killed() bool {
	return p.killed.Load() != 0
}

// Table is the process table.
type Table struct {
	fs    *fs.FileSystem
	files *file.Table

	mu       sync.Mutex
	exited   *sync.Cond
	procs    []*Proc
	nextPid  int
	initProc *Proc
}

// NewTable returns an empty process table sized by the file system options.
func NewTable(files *file.Table) *Table {
	t := &Table{
		fs:      files.FileSystem(),
		files:   files,
		procs:   make([]*Proc, files.FileSystem().Options().ProcTableSize),
		nextPid: 1,
	}
	t.exited = sync.NewCond(&t.mu)
	return t
}

func (t *Table) Files() *file.Table {
	return t.files
}

// allocLocked claims a free slot for a new process.
func (t *Table) allocLocked(name string, parent *Proc) (*Proc, error) {
	for i, p := range t.procs {
		if p != nil {
			continue
		}
		p = &Proc{pid: t.nextPid, name: name, parent: parent, state: Running, t: t}
		p.ctx = sleeplock.WithOwner(context.Background(), p.pid)
		t.nextPid++
		t.procs[i] = p
		metricProcs.Add(1)
		return p, nil
	}
	return nil, proto.ErrProcTableFull
}

// Spawn starts a process with no parent, an empty descriptor table and
// the root as working directory. The first one spawned adopts orphans.
func (t *Table) Spawn(name string) (*Proc, error) {
	t.mu.Lock()
	p, err := t.allocLocked(name, nil)
	if err == nil && t.initProc == nil {
		t.initProc = p
	}
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p.fdt = t.files.NewDescriptors()
	p.cwd = t.fs.Root()
	log.LogDebugf("spawn: %v", p)
	return p, nil
}

// Lookup returns the live process with the given pid.
func (t *Table) Lookup(pid int) (*Proc, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.procs {
		if p != nil && p.pid == pid {
			return p, nil
		}
	}
	return nil, errors.Annotatef(proto.ErrNoProcess, "pid %d", pid)
}

// Procs returns the processes in table order.
func (t *Table) Procs() []*Proc {
	t.mu.Lock()
	defer t.mu.Unlock()
	procs := make([]*Proc, 0, len(t.procs))
	for _, p := range t.procs {
		if p != nil {
			procs = append(procs, p)
		}
	}
	return procs
}

// StateOf returns the scheduling state of p.
func (t *Table) StateOf(p *Proc) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return p.state
}

// Kill marks pid killed. The process notices at its next call; a call
// already waiting on a pipe or a lock keeps waiting.
func (t *Table) Kill(pid int) error {
	p, err := t.Lookup(pid)
	if err != nil {
		return err
	}
	p.killed.Store(1)
	log.LogInfof("kill: %v", p)
	return nil
}

// Fork creates a child of p sharing every open file and the working
// directory.
func (p *Proc) Fork() (*Proc, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	t := p.t
	t.mu.Lock()
	child, err := t.allocLocked(p.name, p)
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	child.fdt = p.fdt.Fork()
	child.cwd = t.fs.Dup(p.cwd)
	log.LogDebugf("fork: %v -> %v", p, child)
	return child, nil
}

// Exit closes every descriptor, drops the working directory and leaves p
// a zombie until its parent waits for it. Children go to the first process.
func (p *Proc) Exit() {
	t := p.t
	p.fdt.CloseAll()
	if p.cwd != nil {
		t.fs.Release(p.cwd)
		p.cwd = nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if p.state != Running {
		log.LogPanicf("exit: %v in state %v", p, p.state)
	}
	for _, c := range t.procs {
		if c != nil && c.parent == p {
			c.parent = t.initProc
			if t.initProc == p {
				c.parent = nil
			}
			if c.parent == nil && c.state == Zombie {
				t.freeLocked(c)
			}
		}
	}
	p.state = Zombie
	if p.parent == nil {
		t.freeLocked(p)
	}
	t.exited.Broadcast()
	log.LogDebugf("exit: %v", p)
}

func (t *Table) freeLocked(p *Proc) {
	for i, q := range t.procs {
		if q == p {
			t.procs[i] = nil
			metricProcs.Add(-1)
		}
	}
	p.state = Unused
	if t.initProc == p {
		t.initProc = nil
	}
}

// Wait blocks until a child of p exits, frees it and returns its pid.
func (p *Proc) Wait() (int, error) {
	if err := p.enter(); err != nil {
		return -1, err
	}
	t := p.t
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		children := 0
		for _, c := range t.procs {
			if c == nil || c.parent != p {
				continue
			}
			if c.state == Zombie {
				t.freeLocked(c)
				return c.pid, nil
			}
			children++
		}
		if children == 0 {
			return -1, errors.Annotatef(proto.ErrNoProcess, "%v has no children", p)
		}
		t.exited.Wait()
	}
}
