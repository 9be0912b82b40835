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
	"io"
	"strings"

	"github.com/cubefs/xkfs/proto"
	"github.com/juju/errors"
)

// putChunk is the write size used by put. Each write past the end of the
// file takes one extent, so it bounds files to NumExtents chunks.
const putChunk = 256 * proto.BlockSize

func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

func (s *session) stat(path string) (*proto.Stat, error) {
	fd, err := s.p.Open(path, proto.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer s.p.Close(fd)
	return s.p.Fstat(fd)
}

// readDir returns the live entries of the directory at path.
func (s *session) readDir(path string) ([]proto.Dirent, error) {
	fd, err := s.p.Open(path, proto.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer s.p.Close(fd)
	st, err := s.p.Fstat(fd)
	if err != nil {
		return nil, err
	}
	if st.Type != proto.TypeDir {
		return nil, errors.Annotatef(proto.ErrNotDir, "%v", path)
	}
	var (
		ents []proto.Dirent
		buf  = make([]byte, 32*proto.DirentSize)
	)
	for {
		n, err := s.p.Read(fd, buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return ents, nil
		}
		for off := 0; off+proto.DirentSize <= n; off += proto.DirentSize {
			var de proto.Dirent
			if err = de.UnmarshalBinary(buf[off:]); err != nil {
				return nil, err
			}
			if de.Inum != 0 {
				ents = append(ents, de)
			}
		}
	}
}

func (s *session) list(w io.Writer, path string) error {
	st, err := s.stat(path)
	if err != nil {
		return err
	}
	stdout(w, "%v\n", formatDirEntryTableHeader())
	if st.Type != proto.TypeDir {
		stdout(w, "%v\n", formatDirEntryTableRow(path, st))
		return nil
	}
	ents, err := s.readDir(path)
	if err != nil {
		return err
	}
	for _, de := range ents {
		name := de.NameString()
		cst, err := s.stat(joinPath(path, name))
		if err != nil {
			return errors.Annotatef(err, "stat %v", name)
		}
		stdout(w, "%v\n", formatDirEntryTableRow(name, cst))
	}
	return nil
}

func (s *session) cat(w io.Writer, path string) error {
	fd, err := s.p.Open(path, proto.O_RDONLY)
	if err != nil {
		return err
	}
	defer s.p.Close(fd)
	buf := make([]byte, 64*proto.BlockSize)
	for {
		n, err := s.p.Read(fd, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err = w.Write(buf[:n]); err != nil {
			return err
		}
	}
}

// put replaces the file at path with the content of r.
func (s *session) put(path string, r io.Reader) (total int, err error) {
	if err = s.p.Unlink(path); err != nil && errors.Cause(err) != proto.ErrNotFound {
		return
	}
	fd, err := s.p.Open(path, proto.O_CREATE|proto.O_WRONLY)
	if err != nil {
		return
	}
	defer s.p.Close(fd)
	buf := make([]byte, putChunk)
	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if n, err = s.p.Write(fd, buf[:n]); err != nil {
				return total, err
			}
			total += n
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// errCheckFailed is returned by fsck when the image has problems.
var errCheckFailed = errors.New("file system check found problems")

func (s *session) fsck(w io.Writer, showLeaked bool) error {
	r, err := s.fs.Check(s.p.Context())
	if err != nil {
		return err
	}
	stdout(w, "Checked %v:\n%v", s.image, formatCheckReport(r, showLeaked))
	if !r.OK() {
		return errCheckFailed
	}
	return nil
}
