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
	"strings"

	"github.com/cubefs/xkfs/proto"
	"github.com/juju/errors"
)

// SplitPath returns the components of path. Repeated separators are
// skipped and each name is cut to the on-disk name length.
//
//	"a/bb/c"   -> a, bb, c
//	"///a//bb" -> a, bb
//	"", "////" -> none
func SplitPath(path string) []string {
	var elems []string
	for _, e := range strings.Split(path, "/") {
		if e == "" {
			continue
		}
		if len(e) > proto.DirNameSize {
			e = e[:proto.DirNameSize]
		}
		elems = append(elems, e)
	}
	return elems
}

// Resolve returns a referenced, unlocked inode for path. Relative paths
// start at cwd, or at the root when cwd is nil.
func (f *FileSystem) Resolve(ctx context.Context, cwd *Inode, path string) (*Inode, error) {
	ip, _, err := f.namex(ctx, cwd, path, false)
	return ip, err
}

// ResolveParent returns the referenced, unlocked directory that should hold
// the last component of path, and that component.
func (f *FileSystem) ResolveParent(ctx context.Context, cwd *Inode, path string) (*Inode, string, error) {
	return f.namex(ctx, cwd, path, true)
}

func (f *FileSystem) namex(ctx context.Context, cwd *Inode, path string, parent bool) (ip *Inode, name string, err error) {
	elems := SplitPath(path)
	if parent && len(elems) == 0 {
		return nil, "", errors.Annotatef(proto.ErrInvalidArg, "no last element in %q", path)
	}
	if strings.HasPrefix(path, "/") || cwd == nil {
		ip = f.Root()
	} else {
		ip = f.Dup(cwd)
	}

	for i, elem := range elems {
		if err = f.Lock(ctx, ip); err != nil {
			f.Release(ip)
			return nil, "", err
		}
		if ip.Type != proto.TypeDir {
			f.Unlock(ctx, ip)
			f.Release(ip)
			return nil, "", errors.Annotatef(proto.ErrNotDir, "%q in %q", elem, path)
		}
		if parent && i == len(elems)-1 {
			f.Unlock(ctx, ip)
			return ip, elem, nil
		}
		next, _, lerr := f.DirLookup(ctx, ip, elem)
		f.Unlock(ctx, ip)
		f.Release(ip)
		if lerr != nil {
			if errors.Cause(lerr) == proto.ErrNotFound {
				return nil, "", errors.Annotatef(proto.ErrNotFound, "%q", path)
			}
			return nil, "", lerr
		}
		ip = next
	}
	return ip, "", nil
}
