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

// On-disk layout:
//
//	+-------+------------+------------+---------------+---------------------+
//	| block |     0      |     1      | BmapStart ... | InodeStart ...      |
//	+-------+------------+------------+---------------+---------------------+
//	| item  | boot block | superblock | block bitmap  | inode file, data    |
//	+-------+------------+------------+---------------+---------------------+
const (
	BlockSize      = 512
	BitsPerBlock   = BlockSize * 8
	BootBlkno      = 0
	SuperBlkno     = 1
	RootDev        = 1
	InodeFileIno   = 0
	RootIno        = 1
	DinodeSize     = 8 + NumExtents*ExtentLength
	DirNameSize    = 14
	DirentSize     = 2 + DirNameSize
	SuperblockSize = 16
	SizeDeleted    = ^uint32(0)
	MaxDirentInum  = 1<<16 - 1
)

// Inode types.
const (
	TypeFree int16 = iota
	TypeDir
	TypeFile
	TypeDev
)

// Device ids.
const (
	DevNone    int16 = 0
	DevConsole int16 = 1
	DevNull    int16 = 2
)

// Open modes.
const (
	O_RDONLY = 0x000
	O_WRONLY = 0x001
	O_RDWR   = 0x002
	O_CREATE = 0x200

	AccessModeMask = 0x003
)

// TypeName returns a printable name for an inode type.
func TypeName(t int16) string {
	switch t {
	case TypeFree:
		return "free"
	case TypeDir:
		return "dir"
	case TypeFile:
		return "file"
	case TypeDev:
		return "dev"
	}
	return fmt.Sprintf("type(%d)", t)
}

// Superblock describes the layout of the device.
type Superblock struct {
	Size       uint32 // size of file system image (blocks)
	NBlocks    uint32 // number of data blocks
	BmapStart  uint32 // block number of first free map block
	InodeStart uint32 // block number of the start of the inode file
}

// String returns the string format of the superblock.
func (sb *Superblock) String() string {
	return fmt.Sprintf("sb: size %d nblocks %d bmap start %d inodestart %d",
		sb.Size, sb.NBlocks, sb.BmapStart, sb.InodeStart)
}

// BitmapBlock returns the bitmap block that holds the bit for blkno.
func (sb *Superblock) BitmapBlock(blkno uint32) uint32 {
	return blkno/BitsPerBlock + sb.BmapStart
}

// BitmapBlocks returns the number of blocks used by the bitmap.
func (sb *Superblock) BitmapBlocks() uint32 {
	return (sb.Size + BitsPerBlock - 1) / BitsPerBlock
}

// MarshalBinary marshals the binary format of the superblock.
func (sb *Superblock) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, SuperblockSize))
	if err := binary.Write(buf, binary.LittleEndian, sb); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary unmarshals the binary format of the superblock.
func (sb *Superblock) UnmarshalBinary(data []byte) error {
	if len(data) < SuperblockSize {
		return ErrUnmarshalData
	}
	return binary.Read(bytes.NewReader(data[:SuperblockSize]), binary.LittleEndian, sb)
}

// Dinode is the on-disk form of an inode, stored in the inode file.
// Marshal layout:
//
//	+-------+------+-------+------+------------------+
//	| item  | Type | DevID | Size | Extents          |
//	+-------+------+-------+------+------------------+
//	| bytes |  2   |   2   |  4   | NumExtents * 8   |
//	+-------+------+-------+------+------------------+
type Dinode struct {
	Type    int16
	DevID   int16
	Size    uint32
	Extents Extents
}

// NewDinode returns an empty dinode of the given type.
func NewDinode(t int16) *Dinode {
	return &Dinode{Type: t}
}

// DeletedDinode returns the record written over an unlinked inode.
func DeletedDinode() *Dinode {
	return &Dinode{Type: TypeFree, Size: SizeDeleted}
}

// IsDeleted reports whether the slot holding d can be reused.
func (d *Dinode) IsDeleted() bool {
	return d.Size == SizeDeleted
}

// String returns the string format of the dinode.
func (d *Dinode) String() string {
	return fmt.Sprintf("Dinode{Type(%v),DevID(%v),Size(%v),Extents(%v)}",
		TypeName(d.Type), d.DevID, d.Size, d.Extents.Len())
}

// MarshalBinary marshals the binary format of the dinode.
func (d *Dinode) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, DinodeSize))
	if err := binary.Write(buf, binary.LittleEndian, d.Type); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, d.DevID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, d.Size); err != nil {
		return nil, err
	}
	for i := range d.Extents {
		bs, err := d.Extents[i].MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf.Write(bs)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary unmarshals the binary format of the dinode.
func (d *Dinode) UnmarshalBinary(data []byte) (err error) {
	if len(data) < DinodeSize {
		return ErrUnmarshalData
	}
	buf := bytes.NewBuffer(data[:DinodeSize])
	if err = binary.Read(buf, binary.LittleEndian, &d.Type); err != nil {
		return
	}
	if err = binary.Read(buf, binary.LittleEndian, &d.DevID); err != nil {
		return
	}
	if err = binary.Read(buf, binary.LittleEndian, &d.Size); err != nil {
		return
	}
	for i := range d.Extents {
		if err = d.Extents[i].UnmarshalBinary(buf); err != nil {
			return
		}
	}
	return
}

// InodeOffset returns the byte offset of inode inum inside the inode file.
func InodeOffset(inum uint32) uint32 {
	return inum * DinodeSize
}

// Dirent is a fixed-size directory entry. Inum 0 marks an empty slot.
type Dirent struct {
	Inum uint16
	Name [DirNameSize]byte
}

// NewDirent builds a dirent, truncating name to DirNameSize bytes.
func NewDirent(inum uint32, name string) *Dirent {
	de := &Dirent{Inum: uint16(inum)}
	copy(de.Name[:], name)
	return de
}

// NameString returns the entry name without NUL padding.
func (de *Dirent) NameString() string {
	n := bytes.IndexByte(de.Name[:], 0)
	if n < 0 {
		n = DirNameSize
	}
	return string(de.Name[:n])
}

// Matches compares name with the entry the way the on-disk format stores
// it: only the first DirNameSize bytes are significant.
func (de *Dirent) Matches(name string) bool {
	if len(name) > DirNameSize {
		name = name[:DirNameSize]
	}
	return de.NameString() == name
}

// MarshalBinary marshals the binary format of the dirent.
func (de *Dirent) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, DirentSize))
	if err := binary.Write(buf, binary.LittleEndian, de); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary unmarshals the binary format of the dirent.
func (de *Dirent) UnmarshalBinary(data []byte) error {
	if len(data) < DirentSize {
		return ErrUnmarshalData
	}
	return binary.Read(bytes.NewReader(data[:DirentSize]), binary.LittleEndian, de)
}

// Stat is the metadata returned by fstat.
type Stat struct {
	Dev  uint32 `json:"dev"`
	Ino  uint32 `json:"ino"`
	Type int16  `json:"type"`
	Size uint32 `json:"size"`
}

// String returns the string format of the stat.
func (st *Stat) String() string {
	return fmt.Sprintf("Stat{Dev(%v),Ino(%v),Type(%v),Size(%v)}", st.Dev, st.Ino, TypeName(st.Type), st.Size)
}
