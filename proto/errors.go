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

import "github.com/juju/errors"

// err
var (
	ErrMarshalData   = errors.New("marshal data error")
	ErrUnmarshalData = errors.New("unmarshal data error")
	ErrInvalidCfg    = errors.New("bad configuration file")
	ErrBadSuperblock = errors.New("bad superblock")

	ErrBadFd             = errors.New("bad file descriptor")
	ErrTooManyOpenFiles  = errors.New("too many open files")
	ErrFileTableOverflow = errors.New("file table overflow")
	ErrNotFound          = errors.New("no such file or directory")
	ErrExist             = errors.New("file exists")
	ErrNotDir            = errors.New("not a directory")
	ErrIsDir             = errors.New("is a directory")
	ErrNotFile           = errors.New("not a regular file")
	ErrAccessMode        = errors.New("operation not permitted by access mode")
	ErrReadOnly          = errors.New("read-only file system")
	ErrBrokenPipe        = errors.New("broken pipe")
	ErrBusy              = errors.New("resource busy")
	ErrInvalidArg        = errors.New("invalid argument")
	ErrInvalidOffset     = errors.New("offset past end of file")
	ErrOverflow          = errors.New("offset overflow")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoDevice          = errors.New("no such device")
	ErrNameTooLong       = errors.New("file name too long")
	ErrNoInodes          = errors.New("no free inode numbers")
	ErrNoSpace           = errors.New("no space left on device")
	ErrKilled            = errors.New("process killed")
	ErrNoProcess         = errors.New("no such process")
	ErrProcTableFull     = errors.New("process table full")
)
