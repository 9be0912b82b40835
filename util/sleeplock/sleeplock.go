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

// Package sleeplock provides an exclusive lock whose holder is a process,
// not a goroutine. Waiters sleep on a condition variable until the holder
// releases the lock, and the holder can be asked whether it owns it.
package sleeplock

import (
	"context"
	"fmt"
	"sync"
)

type ownerKey struct{}

// NoOwner is the owner of an unheld lock and of a context that carries no
// process id.
const NoOwner = 0

// WithOwner returns a context identifying the calling process.
func WithOwner(ctx context.Context, pid int) context.Context {
	return context.WithValue(ctx, ownerKey{}, pid)
}

// Owner returns the process id carried by ctx.
func Owner(ctx context.Context) int {
	if pid, ok := ctx.Value(ownerKey{}).(int); ok {
		return pid
	}
	return NoOwner
}

type Lock struct {
	once   sync.Once
	mu     sync.Mutex
	cond   *sync.Cond
	locked bool
	owner  int
	name   string
}

func New(name string) *Lock {
	l := &Lock{name: name}
	l.once.Do(l.init)
	return l
}

func (l *Lock) init() {
	l.cond = sync.NewCond(&l.mu)
}

func (l *Lock) Name() string {
	return l.name
}

// Lock sleeps until the lock is free and takes it for the process in ctx.
// The wait does not observe ctx cancellation. A ctx without an owner panics.
func (l *Lock) Lock(ctx context.Context) {
	if Owner(ctx) == NoOwner {
		panic(fmt.Sprintf("sleeplock %s: acquire without an owner", l.name))
	}
	l.once.Do(l.init)
	l.mu.Lock()
	for l.locked {
		l.cond.Wait()
	}
	l.locked = true
	l.owner = Owner(ctx)
	l.mu.Unlock()
}

func (l *Lock) Unlock() {
	l.once.Do(l.init)
	l.mu.Lock()
	l.locked = false
	l.owner = NoOwner
	l.cond.Broadcast()
	l.mu.Unlock()
}

// HeldBy reports whether the process in ctx holds the lock. A ctx without
// an owner holds nothing.
func (l *Lock) HeldBy(ctx context.Context) bool {
	owner := Owner(ctx)
	if owner == NoOwner {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked && l.owner == owner
}
