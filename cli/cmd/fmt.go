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
	"fmt"
	"strings"

	"github.com/cubefs/xkfs/fs"
	"github.com/cubefs/xkfs/proto"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	dirColor     = color.New(color.FgHiBlue, color.Bold)
	devColor     = color.New(color.FgHiYellow)
	okColor      = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgHiYellow)
	problemColor = color.New(color.FgHiRed)
)

var dirEntryTablePattern = "%-14v    %-4v    %-6v    %-10v"

func formatDirEntryTableHeader() string {
	return fmt.Sprintf(dirEntryTablePattern, "NAME", "TYPE", "INODE", "SIZE")
}

func colorizeName(name string, typ int16) string {
	switch typ {
	case proto.TypeDir:
		return dirColor.Sprint(name)
	case proto.TypeDev:
		return devColor.Sprint(name)
	}
	return name
}

func formatDirEntryTableRow(name string, st *proto.Stat) string {
	// pad before coloring so escape codes do not skew the columns
	padded := fmt.Sprintf("%-14v", name)
	return fmt.Sprintf(dirEntryTablePattern, colorizeName(padded, st.Type),
		proto.TypeName(st.Type), st.Ino, humanize.IBytes(uint64(st.Size)))
}

func formatStat(path string, st *proto.Stat) string {
	var sb = strings.Builder{}
	sb.WriteString(fmt.Sprintf("  Path   : %v\n", path))
	sb.WriteString(fmt.Sprintf("  Device : %v\n", st.Dev))
	sb.WriteString(fmt.Sprintf("  Inode  : %v\n", st.Ino))
	sb.WriteString(fmt.Sprintf("  Type   : %v\n", proto.TypeName(st.Type)))
	sb.WriteString(fmt.Sprintf("  Size   : %v (%v bytes)\n", humanize.IBytes(uint64(st.Size)), st.Size))
	return sb.String()
}

func formatSuperblock(sb proto.Superblock) string {
	var b = strings.Builder{}
	b.WriteString(fmt.Sprintf("  Size        : %v blocks (%v)\n", sb.Size, humanize.IBytes(uint64(sb.Size)*proto.BlockSize)))
	b.WriteString(fmt.Sprintf("  Data blocks : %v\n", sb.NBlocks))
	b.WriteString(fmt.Sprintf("  Bitmap      : block %v, %v blocks\n", sb.BmapStart, sb.BitmapBlocks()))
	b.WriteString(fmt.Sprintf("  Inode file  : block %v\n", sb.InodeStart))
	return b.String()
}

func formatCheckReport(r *fs.CheckReport, showLeaked bool) string {
	var sb = strings.Builder{}
	sb.WriteString(fmt.Sprintf("  Inodes  : %v (%v dirs, %v files, %v devices, %v deleted)\n",
		r.Inodes, r.Dirs, r.Files, r.Devices, r.Deleted))
	sb.WriteString(fmt.Sprintf("  Blocks  : %v owned, %v marked (%v)\n",
		r.OwnedBlocks, r.MarkedBlocks, humanize.IBytes(uint64(r.MarkedBlocks)*proto.BlockSize)))
	if len(r.Leaked) > 0 {
		sb.WriteString(warnColor.Sprintf("  Leaked  : %v blocks\n", len(r.Leaked)))
		if showLeaked {
			sb.WriteString(fmt.Sprintf("            %v\n", r.Leaked))
		}
	}
	for _, p := range r.Problems {
		sb.WriteString(problemColor.Sprintf("  Problem : %v\n", p))
	}
	if r.OK() {
		sb.WriteString(okColor.Sprint("  clean\n"))
	}
	return sb.String()
}
