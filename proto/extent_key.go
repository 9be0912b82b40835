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

package proto

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	ExtentLength = 8
	NumExtents   = 30
)

// Extent is one contiguous run of disk blocks owned by an inode.
// Marshal layout:
//
//	+-------+------------+---------+
//	| item  | StartBlkno | NBlocks |
//	+-------+------------+---------+
//	| bytes |     4      |    4    |
//	+-------+------------+---------+
type Extent struct {
	StartBlkno uint32
	NBlocks    uint32
}

// String returns the string format of the extent.
func (e Extent) String() string {
	return fmt.Sprintf("Extent{Start(%v),NBlocks(%v)}", e.StartBlkno, e.NBlocks)
}

// IsEmpty reports whether the extent marks the end of an extent array.
func (e Extent) IsEmpty() bool {
	return e.NBlocks == 0
}

// Bytes returns the capacity of the extent in bytes.
func (e Extent) Bytes() uint32 {
	return e.NBlocks * BlockSize
}

// Contains reports whether blkno falls inside the extent.
func (e Extent) Contains(blkno uint32) bool {
	return blkno >= e.StartBlkno && blkno < e.StartBlkno+e.NBlocks
}

// MarshalBinary marshals the binary format of the extent.
func (e *Extent) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, ExtentLength))
	if err := binary.Write(buf, binary.LittleEndian, e.StartBlkno); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, e.NBlocks); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary unmarshals the binary format of the extent.
func (e *Extent) UnmarshalBinary(buf *bytes.Buffer) (err error) {
	if err = binary.Read(buf, binary.LittleEndian, &e.StartBlkno); err != nil {
		return
	}
	if err = binary.Read(buf, binary.LittleEndian, &e.NBlocks); err != nil {
		return
	}
	return
}

// Extents is the fixed-size extent array of an inode. Populated extents
// come first; the first empty extent ends the array.
type Extents [NumExtents]Extent

// Capacity returns the number of bytes addressable through the extents.
func (es *Extents) Capacity() (capacity uint64) {
	for _, e := range es {
		if e.IsEmpty() {
			break
		}
		capacity += uint64(e.Bytes())
	}
	return
}

// Len returns the number of populated extents.
func (es *Extents) Len() int {
	for i, e := range es {
		if e.IsEmpty() {
			return i
		}
	}
	return NumExtents
}

// Locate returns the index of the extent holding byte off and the offset
// of off within that extent. ok is false when off is past the capacity.
func (es *Extents) Locate(off uint64) (idx int, extOff uint32, ok bool) {
	var base uint64
	for i, e := range es {
		if e.IsEmpty() {
			break
		}
		if off < base+uint64(e.Bytes()) {
			return i, uint32(off - base), true
		}
		base += uint64(e.Bytes())
	}
	return 0, 0, false
}

// Reset clears every extent.
func (es *Extents) Reset() {
	for i := range es {
		es[i] = Extent{}
	}
}
