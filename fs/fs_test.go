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
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/cubefs/xkfs/bio"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func requireCause(t *testing.T, err error, want error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, errors.Cause(err), "%v", err)
}

func TestMount(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	require.Equal(t, proto.Superblock{Size: testBlocks, NBlocks: testBlocks - 3, BmapStart: 2, InodeStart: 3}, f.Superblock())

	root := f.Root()
	defer f.Release(root)
	require.NoError(t, f.Lock(ctx, root))
	require.Equal(t, proto.TypeDir, root.Type)
	require.EqualValues(t, 2*proto.DirentSize, root.Size)
	f.Unlock(ctx, root)

	ifile := f.InodeFile()
	defer f.Release(ifile)
	require.EqualValues(t, 2*proto.DinodeSize, ifile.Size)
	require.EqualValues(t, 2, ifile.Ref())
}

func TestMountBadSuperblock(t *testing.T) {
	_, err := Mount(context.Background(), bio.NewMemDevice(64), nil)
	requireCause(t, err, proto.ErrBadSuperblock)

	opt := DefaultOptions()
	opt.InodeCacheSize = 0
	_, err = Mount(context.Background(), newTestDevice(t, 64, FormatOptions{}), opt)
	requireCause(t, err, proto.ErrInvalidCfg)
}

func TestFormatTooSmall(t *testing.T) {
	_, err := Format(context.Background(), bio.NewMemDevice(8), FormatOptions{})
	requireCause(t, err, proto.ErrInvalidArg)
	_, err = Format(context.Background(), bio.NewMemDevice(32), FormatOptions{InodeFileBlocks: 40})
	requireCause(t, err, proto.ErrInvalidArg)
}

func loadConfig(t *testing.T, s string) *config.Config {
	cfg, err := config.LoadConfigString(s)
	require.NoError(t, err)
	return cfg
}

func TestOptionsFromConfig(t *testing.T) {
	opt, err := NewOptionsFromConfig(loadConfig(t, `{
		"inodeCacheSize": 10,
		"writable": true,
		"reclaimOnUnlink": "true",
		"logLevel": "debug"
	}`))
	require.NoError(t, err)
	require.Equal(t, 10, opt.InodeCacheSize)
	require.Equal(t, DefaultFileTableSize, opt.FileTableSize)
	require.True(t, opt.Writable)
	require.True(t, opt.ReclaimOnUnlink)
	require.Equal(t, "debug", opt.LogLevel)
	require.Contains(t, opt.String(), "InodeCache(10)")

	_, err = NewOptionsFromConfig(loadConfig(t, `{"inodeCacheSize": 1}`))
	requireCause(t, err, proto.ErrInvalidCfg)
	_, err = NewOptionsFromConfig(loadConfig(t, `{"logLevel": "loud"}`))
	requireCause(t, err, proto.ErrInvalidCfg)
}

func TestBallocFirstFit(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)

	a, err := f.balloc(ctx, 3)
	require.NoError(t, err)
	require.EqualValues(t, 8, a)
	b, err := f.balloc(ctx, 2)
	require.NoError(t, err)
	require.EqualValues(t, 11, b)

	require.NoError(t, f.bfree(ctx, a, 3))
	c, err := f.balloc(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, a, c)
	d, err := f.balloc(ctx, 2)
	require.NoError(t, err)
	require.EqualValues(t, 13, d)
	e, err := f.balloc(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 10, e)
}

func TestBallocExhaustionIsFatal(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	_, err := f.balloc(ctx, testBlocks-8)
	require.NoError(t, err)
	require.Panics(t, func() { f.balloc(ctx, 1) })
}

func TestBfreeDoubleFreeIsFatal(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	a, err := f.balloc(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, f.bfree(ctx, a, 2))
	require.Panics(t, func() { f.bfree(ctx, a, 1) })
	require.Panics(t, func() { f.bfree(ctx, a, 0) })
}

func TestInodeCache(t *testing.T) {
	f, _ := newTestFS(t, func(o *Options) { o.InodeCacheSize = 2 })
	a := f.Get(f.dev, 5)
	b := f.Get(f.dev, 5)
	require.True(t, a == b)
	require.EqualValues(t, 2, a.Ref())
	require.Equal(t, 1, f.CachedInodes())

	c := f.Get(f.dev, 6)
	require.Equal(t, 2, f.CachedInodes())
	require.Panics(t, func() { f.Get(f.dev, 7) })

	f.Release(c)
	d := f.Get(f.dev, 7)
	require.True(t, c == d)
	require.False(t, d.valid)

	f.Release(d)
	f.Release(b)
	f.Release(a)
	require.Equal(t, 0, f.CachedInodes())
	require.Panics(t, func() { f.Release(a) })

	require.True(t, f.Dup(f.Get(f.dev, 1)) != nil)
	require.Equal(t, 1, f.CachedInodes())
}

func TestLockDiscipline(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx1, ctx2 := ownerCtx(1), ownerCtx(2)
	ip := writeFile(t, f, ctx1, "/f", []byte("data"))
	defer f.Release(ip)

	buf := make([]byte, 4)
	require.Panics(t, func() { f.Read(ctx1, ip, buf, 0) })
	require.Panics(t, func() { f.Write(ctx1, ip, buf, 0) })
	require.Panics(t, func() { f.Unlock(ctx1, ip) })

	require.NoError(t, f.Lock(ctx1, ip))
	require.True(t, ip.HeldBy(ctx1))
	require.Panics(t, func() { f.Unlock(ctx2, ip) })
	f.Unlock(ctx1, ip)
}

func TestLockWithoutOwner(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	ip := writeFile(t, f, ctx, "/f", []byte("data"))
	defer f.Release(ip)

	noOwner := context.Background()
	require.Panics(t, func() { f.Lock(noOwner, ip) })

	require.NoError(t, f.Lock(ctx, ip))
	buf := make([]byte, 4)
	require.Panics(t, func() { f.Read(noOwner, ip, buf, 0) })
	require.Panics(t, func() { f.Write(noOwner, ip, buf, 0) })
	require.Panics(t, func() { f.Unlock(noOwner, ip) })
	require.True(t, ip.HeldBy(ctx))
	f.Unlock(ctx, ip)
}

func TestHydrateFreeInodeIsFatal(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ip := f.Get(f.dev, 40)
	defer f.Release(ip)
	require.Panics(t, func() { f.Lock(ownerCtx(1), ip) })
}

func TestReadWrite(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	data := patternData(2000)
	ip := writeFile(t, f, ctx, "/f", data)
	defer f.Release(ip)
	require.Equal(t, data, readAll(t, f, ctx, ip))

	require.NoError(t, f.Lock(ctx, ip))
	defer f.Unlock(ctx, ip)
	require.Equal(t, 1, ip.Extents.Len())
	require.EqualValues(t, 4, ip.Extents[0].NBlocks)

	buf := make([]byte, 100)
	n, err := f.Read(ctx, ip, buf, 2000)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	n, err = f.Read(ctx, ip, buf, 1990)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, data[1990:], buf[:10])

	n, err = f.Write(ctx, ip, []byte("XYZ"), 510)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.EqualValues(t, 2000, ip.Size)
	n, err = f.Read(ctx, ip, buf[:5], 509)
	require.NoError(t, err)
	require.Equal(t, []byte{data[509], 'X', 'Y', 'Z', data[513]}, buf[:5])

	_, err = f.Write(ctx, ip, []byte("gap"), 2001)
	requireCause(t, err, proto.ErrInvalidOffset)
	_, err = f.Read(ctx, ip, buf, ^uint32(0)-10)
	requireCause(t, err, proto.ErrOverflow)
	_, err = f.Write(ctx, ip, buf, ^uint32(0)-10)
	requireCause(t, err, proto.ErrOverflow)

	n, err = f.Write(ctx, ip, patternData(100), 2000)
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.EqualValues(t, 2100, ip.Size)
	require.Equal(t, 2, ip.Extents.Len())
	require.EqualValues(t, 1, ip.Extents[1].NBlocks)

	big := make([]byte, 300)
	n, err = f.Read(ctx, ip, big, 1900)
	require.NoError(t, err)
	require.Equal(t, 200, n)
	require.Equal(t, data[1900:2000], big[:100])
	require.Equal(t, patternData(100), big[100:200])
}

func TestFileTooLarge(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	ip, err := f.Create(ctx, nil, "/big")
	require.NoError(t, err)
	defer f.Release(ip)
	require.NoError(t, f.Lock(ctx, ip))
	defer f.Unlock(ctx, ip)

	block := patternData(proto.BlockSize)
	for i := 0; i < proto.NumExtents; i++ {
		_, err = f.Write(ctx, ip, block, ip.Size)
		require.NoError(t, err)
	}
	require.Equal(t, proto.NumExtents, ip.Extents.Len())
	_, err = f.Write(ctx, ip, []byte("x"), ip.Size)
	requireCause(t, err, proto.ErrFileTooLarge)
	require.EqualValues(t, proto.NumExtents*proto.BlockSize, ip.Size)

	n, err := f.Write(ctx, ip, []byte("x"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPersistAcrossMount(t *testing.T) {
	f, dev := newTestFS(t, nil)
	ctx := ownerCtx(1)
	data := patternData(3000)
	f.Release(writeFile(t, f, ctx, "/f", data))
	require.NoError(t, f.Mkdir(ctx, nil, "/d"))
	f.Release(writeFile(t, f, ctx, "/d/g", []byte("nested")))
	require.NoError(t, f.Sync())

	f2 := mountTest(t, dev, nil)
	ip, err := f2.Resolve(ctx, nil, "/f")
	require.NoError(t, err)
	require.Equal(t, data, readAll(t, f2, ctx, ip))
	f2.Release(ip)
	ip, err = f2.Resolve(ctx, nil, "/d/g")
	require.NoError(t, err)
	require.Equal(t, []byte("nested"), readAll(t, f2, ctx, ip))
	f2.Release(ip)
	checkClean(t, f2)
}

func TestInodeFileGrows(t *testing.T) {
	f, dev := newTestFS(t, nil)
	ctx := ownerCtx(1)
	for i := 0; i < 20; i++ {
		f.Release(writeFile(t, f, ctx, fmt.Sprintf("/f%02d", i), []byte(fmt.Sprintf("file %d", i))))
	}
	ifile := f.InodeFile()
	require.EqualValues(t, 22*proto.DinodeSize, ifile.Size)
	require.Equal(t, 8, ifile.Extents.Len())
	f.Release(ifile)

	f2 := mountTest(t, dev, nil)
	for i := 0; i < 20; i++ {
		ip, err := f2.Resolve(ctx, nil, fmt.Sprintf("/f%02d", i))
		require.NoError(t, err)
		require.EqualValues(t, i+2, ip.Inum)
		require.Equal(t, []byte(fmt.Sprintf("file %d", i)), readAll(t, f2, ctx, ip))
		f2.Release(ip)
	}
	r := checkClean(t, f2)
	require.Equal(t, 21, r.Inodes)
	require.Equal(t, 20, r.Files)
	require.Empty(t, r.Leaked)
}

func TestSplitPath(t *testing.T) {
	require.Equal(t, []string{"a", "bb", "c"}, SplitPath("a/bb/c"))
	require.Equal(t, []string{"a", "bb"}, SplitPath("///a//bb"))
	require.Empty(t, SplitPath(""))
	require.Empty(t, SplitPath("////"))
	require.Equal(t, []string{"abcdefghijklmn"}, SplitPath("/abcdefghijklmnopq/"))
}

func TestResolve(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	require.NoError(t, f.Mkdir(ctx, nil, "/a"))
	require.NoError(t, f.Mkdir(ctx, nil, "/a/b"))
	c := writeFile(t, f, ctx, "/a/b/c", []byte("c"))
	defer f.Release(c)

	for _, p := range []string{"/a/b/c", "//a///b//c", "/a/./b/../b/c"} {
		ip, err := f.Resolve(ctx, nil, p)
		require.NoError(t, err, p)
		require.True(t, ip == c, p)
		f.Release(ip)
	}

	a, err := f.Resolve(ctx, nil, "/a")
	require.NoError(t, err)
	defer f.Release(a)
	ip, err := f.Resolve(ctx, a, "b/c")
	require.NoError(t, err)
	require.True(t, ip == c)
	f.Release(ip)
	ip, err = f.Resolve(ctx, a, "/a")
	require.NoError(t, err)
	require.True(t, ip == a)
	f.Release(ip)
	ip, err = f.Resolve(ctx, nil, "/a/b/..")
	require.NoError(t, err)
	require.True(t, ip == a)
	f.Release(ip)

	for _, p := range []string{"", "/", "///"} {
		ip, err = f.Resolve(ctx, nil, p)
		require.NoError(t, err)
		require.EqualValues(t, proto.RootIno, ip.Inum)
		f.Release(ip)
	}
	ip, err = f.Resolve(ctx, a, "")
	require.NoError(t, err)
	require.True(t, ip == a)
	f.Release(ip)

	dp, name, err := f.ResolveParent(ctx, nil, "/a/b/new")
	require.NoError(t, err)
	require.Equal(t, "new", name)
	require.EqualValues(t, 3, dp.Inum)
	f.Release(dp)

	_, err = f.Resolve(ctx, nil, "/a/b/c/d")
	requireCause(t, err, proto.ErrNotDir)
	_, err = f.Resolve(ctx, nil, "/a/x/c")
	requireCause(t, err, proto.ErrNotFound)
	_, _, err = f.ResolveParent(ctx, nil, "/")
	requireCause(t, err, proto.ErrInvalidArg)
	require.Equal(t, 2, f.CachedInodes())
}

func TestLongNames(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	ip := writeFile(t, f, ctx, "/abcdefghijklmnopq", []byte("long"))
	defer f.Release(ip)
	same, err := f.Resolve(ctx, nil, "/abcdefghijklmn")
	require.NoError(t, err)
	require.True(t, same == ip)
	f.Release(same)

	root := f.Root()
	defer f.Release(root)
	require.NoError(t, f.Lock(ctx, root))
	entries, err := f.DirEntries(ctx, root)
	f.Unlock(ctx, root)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "abcdefghijklmn", entries[2].NameString())
}

func TestCreate(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	a, err := f.Create(ctx, nil, "/f")
	require.NoError(t, err)
	b, err := f.Create(ctx, nil, "/f")
	require.NoError(t, err)
	require.True(t, a == b)
	require.EqualValues(t, 2, a.Ref())
	f.Release(a)
	f.Release(b)

	_, err = f.Create(ctx, nil, "/missing/f")
	requireCause(t, err, proto.ErrNotFound)
	require.NoError(t, f.Mkdir(ctx, nil, "/d"))
	requireCause(t, f.Mkdir(ctx, nil, "/d"), proto.ErrExist)
	requireCause(t, f.Mkdir(ctx, nil, "/"), proto.ErrInvalidArg)

	d, err := f.Resolve(ctx, nil, "/d")
	require.NoError(t, err)
	defer f.Release(d)
	require.NoError(t, f.Lock(ctx, d))
	entries, err := f.DirEntries(ctx, d)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, ".", entries[0].NameString())
	require.Equal(t, d.Inum, uint32(entries[0].Inum))
	require.Equal(t, "..", entries[1].NameString())
	require.EqualValues(t, proto.RootIno, entries[1].Inum)
	requireCause(t, f.DirLink(ctx, d, ".", 9), proto.ErrExist)
	requireCause(t, f.DirLink(ctx, d, "", 9), proto.ErrInvalidArg)
	requireCause(t, f.DirLink(ctx, d, "big", proto.MaxDirentInum+1), proto.ErrNoInodes)
	f.Unlock(ctx, d)
}

func TestOpen(t *testing.T) {
	f, dev := newTestFS(t, nil)
	ctx := ownerCtx(1)
	ip, err := f.Open(ctx, nil, "/new")
	require.NoError(t, err)
	require.True(t, ip.valid)
	require.Equal(t, proto.TypeFile, ip.Type)
	require.False(t, ip.HeldBy(ctx))
	f.Release(ip)

	ro := mountTest(t, dev, func(o *Options) { o.Writable = false })
	ip, err = ro.Open(ctx, nil, "/new")
	require.NoError(t, err)
	ro.Release(ip)
	_, err = ro.Open(ctx, nil, "/other")
	requireCause(t, err, proto.ErrNotFound)
	_, err = ro.Create(ctx, nil, "/other")
	requireCause(t, err, proto.ErrReadOnly)
	requireCause(t, ro.Mkdir(ctx, nil, "/d"), proto.ErrReadOnly)
	requireCause(t, ro.Mknod(ctx, nil, "/c", proto.DevConsole), proto.ErrReadOnly)
	requireCause(t, ro.Unlink(ctx, nil, "/new"), proto.ErrReadOnly)
}

func TestUnlink(t *testing.T) {
	f, _ := newTestFS(t, nil)
	ctx := ownerCtx(1)
	ip := writeFile(t, f, ctx, "/f", patternData(2000))
	inum := ip.Inum

	requireCause(t, f.Unlink(ctx, nil, "/f"), proto.ErrBusy)
	f.Release(ip)
	require.NoError(t, f.Unlink(ctx, nil, "/f"))
	_, err := f.Resolve(ctx, nil, "/f")
	requireCause(t, err, proto.ErrNotFound)
	requireCause(t, f.Unlink(ctx, nil, "/f"), proto.ErrNotFound)

	g, err := f.Create(ctx, nil, "/g")
	require.NoError(t, err)
	require.Equal(t, inum, g.Inum)
	require.NoError(t, f.Lock(ctx, g))
	require.EqualValues(t, 0, g.Size)
	f.Unlock(ctx, g)
	f.Release(g)

	require.NoError(t, f.Mkdir(ctx, nil, "/d"))
	requireCause(t, f.Unlink(ctx, nil, "/d"), proto.ErrIsDir)
	requireCause(t, f.Unlink(ctx, nil, "/d/."), proto.ErrInvalidArg)
	require.NoError(t, f.Mknod(ctx, nil, "/null", proto.DevNull))
	requireCause(t, f.Unlink(ctx, nil, "/null"), proto.ErrNotFile)

	r := checkClean(t, f)
	require.Len(t, r.Leaked, 4)
	require.Equal(t, 0, r.Deleted)
}

func TestUnlinkReclaim(t *testing.T) {
	f, _ := newTestFS(t, func(o *Options) { o.ReclaimOnUnlink = true })
	ctx := ownerCtx(1)
	ip := writeFile(t, f, ctx, "/f", patternData(2000))
	require.NoError(t, f.Lock(ctx, ip))
	start := ip.Extents[0].StartBlkno
	f.Unlock(ctx, ip)
	f.Release(ip)

	require.NoError(t, f.Unlink(ctx, nil, "/f"))
	r := checkClean(t, f)
	require.Empty(t, r.Leaked)
	require.Equal(t, 1, r.Deleted)

	b, err := f.balloc(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, start, b)
}

func TestCheckFindsProblems(t *testing.T) {
	f, dev := newTestFS(t, nil)
	ctx := ownerCtx(1)
	ip := writeFile(t, f, ctx, "/f", patternData(600))
	require.NoError(t, f.Lock(ctx, ip))
	start := ip.Extents[0].StartBlkno
	f.Unlock(ctx, ip)
	f.Release(ip)

	// clear the bitmap bit of the file's first block behind the cache
	raw := make([]byte, proto.BlockSize)
	require.NoError(t, dev.ReadBlock(2, raw))
	raw[start/8] &^= 1 << (start % 8)
	require.NoError(t, dev.WriteBlock(2, raw))

	f2 := mountTest(t, dev, nil)
	r, err := f2.Check(ctx)
	require.NoError(t, err)
	require.False(t, r.OK())
	require.Contains(t, r.Problems[0], fmt.Sprintf("block %d", start))
}

func TestConcurrentWriters(t *testing.T) {
	f, _ := newTestFS(t, nil)
	shared := writeFile(t, f, ownerCtx(100), "/shared", nil)
	defer f.Release(shared)

	var g errgroup.Group
	for w := 1; w <= 4; w++ {
		pid := w
		g.Go(func() error {
			ctx := ownerCtx(pid)
			ip, err := f.Create(ctx, nil, fmt.Sprintf("/w%d", pid))
			if err != nil {
				return err
			}
			defer f.Release(ip)
			chunk := bytes.Repeat([]byte{byte('0' + pid)}, 37)
			for i := 0; i < 50; i++ {
				if err = f.Lock(ctx, ip); err != nil {
					return err
				}
				_, err = f.Write(ctx, ip, chunk, ip.Size)
				f.Unlock(ctx, ip)
				if err != nil {
					return err
				}

				if err = f.Lock(ctx, shared); err != nil {
					return err
				}
				_, err = f.Write(ctx, shared, bytes.Repeat([]byte{byte('0' + pid)}, 10), shared.Size)
				f.Unlock(ctx, shared)
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ctx := ownerCtx(1)
	content := readAll(t, f, ctx, shared)
	require.Len(t, content, 4*50*10)
	for i := 0; i < len(content); i += 10 {
		require.Equal(t, bytes.Repeat(content[i:i+1], 10), content[i:i+10])
	}
	for w := 1; w <= 4; w++ {
		ip, err := f.Resolve(ctx, nil, fmt.Sprintf("/w%d", w))
		require.NoError(t, err)
		require.Equal(t, bytes.Repeat([]byte{byte('0' + w)}, 37*50), readAll(t, f, ctx, ip))
		f.Release(ip)
	}
	checkClean(t, f)
}

func TestOverlappingWritersDoNotTear(t *testing.T) {
	f, _ := newTestFS(t, nil)
	initial := patternData(1700)
	shared := writeFile(t, f, ownerCtx(100), "/shared", initial)
	defer f.Release(shared)

	const off, length = 100, 1500
	last := 0
	var g errgroup.Group
	for w := 1; w <= 6; w++ {
		pid := w
		g.Go(func() error {
			ctx := ownerCtx(pid)
			fill := bytes.Repeat([]byte{byte('0' + pid)}, length)
			for i := 0; i < 20; i++ {
				if err := f.Lock(ctx, shared); err != nil {
					return err
				}
				_, err := f.Write(ctx, shared, fill, off)
				if err == nil {
					last = pid
				}
				f.Unlock(ctx, shared)
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	content := readAll(t, f, ownerCtx(1), shared)
	require.Len(t, content, len(initial))
	require.Equal(t, initial[:off], content[:off])
	require.Equal(t, bytes.Repeat([]byte{byte('0' + last)}, length), content[off:off+length])
	require.Equal(t, initial[off+length:], content[off+length:])
	checkClean(t, f)
}
