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

package cmd

import (
	"context"

	"github.com/cubefs/xkfs/bio"
	"github.com/cubefs/xkfs/file"
	"github.com/cubefs/xkfs/fs"
	"github.com/cubefs/xkfs/proc"
	"github.com/cubefs/xkfs/util/log"
	"github.com/juju/errors"
)

// session is a mounted image and the process the tool acts as.
type session struct {
	image string
	fs    *fs.FileSystem
	procs *proc.Table
	p     *proc.Proc
}

// mount maps image and mounts it. writable overrides the configured write
// policy for commands that modify the image.
func (c *XkfsCmd) mount(image string, writable bool) (*session, error) {
	dev, err := bio.OpenFileDevice(image)
	if err != nil {
		return nil, err
	}
	opt := *c.opt
	opt.Writable = opt.Writable || writable
	fsys, err := fs.Mount(context.Background(), dev, &opt)
	if err != nil {
		dev.Close()
		return nil, errors.Annotatef(err, "mount %v", image)
	}
	s := &session{image: image, fs: fsys, procs: proc.NewTable(file.NewTable(fsys))}
	if s.p, err = s.procs.Spawn(LogModule); err != nil {
		fsys.Close()
		return nil, err
	}
	sb := fsys.Superblock()
	log.LogDebugf("mounted %v: %v", image, sb.String())
	return s, nil
}

func (s *session) close() error {
	s.p.Exit()
	return s.fs.Close()
}
