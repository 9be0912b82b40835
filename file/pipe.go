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
	"fmt"
	"sync"

	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/exporter"
	"github.com/juju/errors"
)

const PipeSize = 2048

var (
	metricPipeBytes = exporter.NewCounter("pipe_bytes")
	metricPipes     = exporter.NewGauge("pipe_open")
)

var pipePool = &sync.Pool{New: func() interface{} {
	p := new(Pipe)
	p.notFull = sync.NewCond(&p.mu)
	p.notEmpty = sync.NewCond(&p.mu)
	return p
}}

// Pipe is a bounded byte queue between a read end and a write end. The
// cursors count every byte ever written and read, so wcursor-rcursor is the
// number of buffered bytes and never exceeds PipeSize.
type Pipe struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	readers  int
	writers  int
	rcursor  uint64
	wcursor  uint64
	buf      [PipeSize]byte
}

func newPipe() *Pipe {
	p := pipePool.Get().(*Pipe)
	p.readers, p.writers = 1, 1
	p.rcursor, p.wcursor = 0, 0
	metricPipes.Add(1)
	return p
}

func (p *Pipe) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("Pipe{Readers(%v),Writers(%v),Buffered(%v)}", p.readers, p.writers, p.wcursor-p.rcursor)
}

// Buffered returns the number of unread bytes.
func (p *Pipe) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.wcursor - p.rcursor)
}

// Write queues all of src, sleeping until there is room for it. Writes
// larger than the pipe, or with no reader left, fail.
func (p *Pipe) Write(src []byte) (int, error) {
	n := uint64(len(src))
	if n > PipeSize {
		return 0, errors.Annotatef(proto.ErrInvalidArg, "pipe write of %d bytes", n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.readers == 0 {
			return 0, proto.ErrBrokenPipe
		}
		if p.wcursor-p.rcursor+n <= PipeSize {
			break
		}
		p.notFull.Wait()
	}
	for i := uint64(0); i < n; i++ {
		p.buf[(p.wcursor+i)%PipeSize] = src[i]
	}
	p.wcursor += n
	metricPipeBytes.Add(int64(n))
	p.notEmpty.Broadcast()
	return int(n), nil
}

// Read sleeps until len(dst) bytes are buffered or every writer is gone,
// then copies what is there. With no writers it returns what is left, 0 at
// the end. Requests larger than the pipe are cut to its size.
func (p *Pipe) Read(dst []byte) (int, error) {
	n := uint64(len(dst))
	if n > PipeSize {
		n = PipeSize
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.wcursor-p.rcursor < n && p.writers > 0 {
		p.notEmpty.Wait()
	}
	if avail := p.wcursor - p.rcursor; n > avail {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = p.buf[(p.rcursor+i)%PipeSize]
	}
	p.rcursor += n
	p.notFull.Broadcast()
	return int(n), nil
}

func (p *Pipe) dupEnd(write bool) {
	p.mu.Lock()
	if write {
		p.writers++
	} else {
		p.readers++
	}
	p.mu.Unlock()
}

// closeEnd drops one open count of an end. The pipe goes back to the pool
// once both ends are closed.
func (p *Pipe) closeEnd(write bool) {
	p.mu.Lock()
	if write {
		p.writers--
	} else {
		p.readers--
	}
	p.notFull.Broadcast()
	p.notEmpty.Broadcast()
	free := p.readers == 0 && p.writers == 0
	p.mu.Unlock()
	if free {
		metricPipes.Add(-1)
		pipePool.Put(p)
	}
}
