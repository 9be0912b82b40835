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

package bitmap

import "fmt"

const bitPerByte = 8

// ByteBitMap is a bitmap stored the way the block bitmap is stored on disk:
// bit i lives in byte i/8 at position i%8, least significant bit first.
// A set bit means in use.
type ByteBitMap []byte

func (bitMap ByteBitMap) Bits() int {
	return len(bitMap) * bitPerByte
}

func (bitMap ByteBitMap) IsBitFree(id int) bool {
	return bitMap[id/bitPerByte]&(byte(1)<<(id%bitPerByte)) == 0
}

func (bitMap ByteBitMap) SetBit(id int) {
	bitMap[id/bitPerByte] |= byte(1) << (id % bitPerByte)
}

func (bitMap ByteBitMap) ClearBit(id int) {
	bitMap[id/bitPerByte] &^= byte(1) << (id % bitPerByte)
}

// FindFreeRun returns the first index of n consecutive free bits among the
// first limit bits, scanning from bit 0.
func (bitMap ByteBitMap) FindFreeRun(n, limit int) (start int, err error) {
	if n <= 0 {
		return -1, fmt.Errorf("invalid run length %d", n)
	}
	if limit > bitMap.Bits() {
		limit = bitMap.Bits()
	}
	run := 0
	for i := 0; i < limit; i++ {
		if bitMap[i/bitPerByte] == 0xff && i%bitPerByte == 0 {
			run = 0
			i += bitPerByte - 1
			continue
		}
		if !bitMap.IsBitFree(i) {
			run = 0
			continue
		}
		if run == 0 {
			start = i
		}
		run++
		if run == n {
			return start, nil
		}
	}
	return -1, fmt.Errorf("no free run of %d bits", n)
}

// SetRange marks bits [start, start+n) in use.
func (bitMap ByteBitMap) SetRange(start, n int) {
	for i := start; i < start+n; i++ {
		bitMap.SetBit(i)
	}
}

// ClearRange marks bits [start, start+n) free. It fails without changing
// anything when one of them is already free.
func (bitMap ByteBitMap) ClearRange(start, n int) error {
	for i := start; i < start+n; i++ {
		if bitMap.IsBitFree(i) {
			return fmt.Errorf("bit %d already free", i)
		}
	}
	for i := start; i < start+n; i++ {
		bitMap.ClearBit(i)
	}
	return nil
}
