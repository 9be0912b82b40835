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

const (
	//List of operation name for cli
	CliOpMkfs  = "mkfs"
	CliOpList  = "ls"
	CliOpCat   = "cat"
	CliOpPut   = "put"
	CliOpRm    = "rm"
	CliOpMkdir = "mkdir"
	CliOpStat  = "stat"
	CliOpFsck  = "fsck"
	CliOpShell = "shell"

	//Flags
	CliFlagConfig      = "config"
	CliFlagLogDir      = "log-dir"
	CliFlagLogLevel    = "log-level"
	CliFlagBlocks      = "blocks"
	CliFlagConsole     = "console"
	CliFlagInodeBlocks = "inode-blocks"
	CliFlagWritable    = "writable"
	CliFlagLeaked      = "leaked"

	//Module name of the log files
	LogModule = "xkfs"

	DefaultImageBlocks = 4096
)
