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

package atomicutil

import "sync/atomic"

// Int32 is an int32 updated atomically. Reference counts use it; the
// owning table still serializes the transitions that matter.
type Int32 struct {
	v int32
}

func (i *Int32) Load() (v int32) {
	v = atomic.LoadInt32(&i.v)
	return
}

func (i *Int32) Store(v int32) {
	atomic.StoreInt32(&i.v, v)
}

func (i *Int32) CompareAndSwap(old int32, new int32) (swaped bool) {
	swaped = atomic.CompareAndSwapInt32(&i.v, old, new)
	return
}

func (i *Int32) Add(v int32) (new int32) {
	new = atomic.AddInt32(&i.v, v)
	return
}

func (i *Int32) Sub(v int32) (new int32) {
	new = atomic.AddInt32(&i.v, -v)
	return
}

// Inc adds one and returns the new value.
func (i *Int32) Inc() int32 {
	return i.Add(1)
}

// Dec subtracts one and returns the new value.
func (i *Int32) Dec() int32 {
	return i.Sub(1)
}
