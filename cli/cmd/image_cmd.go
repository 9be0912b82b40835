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
	"os"

	"github.com/cubefs/xkfs/bio"
	"github.com/cubefs/xkfs/fs"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

const (
	cmdMkfsShort  = "Create an empty file system image"
	cmdListShort  = "List a directory of an image"
	cmdCatShort   = "Print a file of an image"
	cmdPutShort   = "Copy a local file into an image"
	cmdRmShort    = "Unlink a file of an image"
	cmdMkdirShort = "Make a directory in an image"
	cmdStatShort  = "Show the metadata of a path in an image"
	cmdFsckShort  = "Check the consistency of an image"
)

// withSession mounts the image named by the first argument for the
// duration of fn.
func (c *XkfsCmd) withSession(image string, writable bool, fn func(s *session) error) (err error) {
	s, err := c.mount(image, writable)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func (c *XkfsCmd) newMkfsCmd() *cobra.Command {
	var (
		optBlocks      uint32
		optInodeBlocks uint32
		optConsole     bool
	)
	var cmd = &cobra.Command{
		Use:   CliOpMkfs + " IMAGE",
		Short: cmdMkfsShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := bio.CreateFileDevice(args[0], optBlocks)
			if err != nil {
				return err
			}
			defer dev.Close()
			sb, err := fs.Format(context.Background(), dev, fs.FormatOptions{
				InodeFileBlocks: optInodeBlocks,
				Console:         optConsole,
			})
			if err != nil {
				return err
			}
			stdout(cmd.OutOrStdout(), "Formatted %v:\n%v", args[0], formatSuperblock(sb))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&optBlocks, CliFlagBlocks, DefaultImageBlocks, "image size in blocks")
	cmd.Flags().Uint32Var(&optInodeBlocks, CliFlagInodeBlocks, fs.DefaultInodeFileBlocks, "initial size of the inode file in blocks")
	cmd.Flags().BoolVar(&optConsole, CliFlagConsole, false, "add the console device file")
	return cmd
}

func (c *XkfsCmd) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CliOpList + " IMAGE [PATH]",
		Short: cmdListShort,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) > 1 {
				path = args[1]
			}
			return c.withSession(args[0], false, func(s *session) error {
				return s.list(cmd.OutOrStdout(), path)
			})
		},
	}
}

func (c *XkfsCmd) newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CliOpCat + " IMAGE PATH",
		Short: cmdCatShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(args[0], false, func(s *session) error {
				return s.cat(cmd.OutOrStdout(), args[1])
			})
		},
	}
}

func (c *XkfsCmd) newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CliOpPut + " IMAGE PATH LOCALFILE",
		Short: cmdPutShort,
		Long:  `Copy LOCALFILE to PATH, replacing any file already there. A LOCALFILE of "-" reads standard input.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := cmd.InOrStdin()
			if args[2] != "-" {
				fp, err := os.Open(args[2])
				if err != nil {
					return err
				}
				defer fp.Close()
				src = fp
			}
			return c.withSession(args[0], true, func(s *session) error {
				n, err := s.put(args[1], src)
				if err != nil {
					return errors.Annotatef(err, "put %v", args[1])
				}
				stdout(cmd.OutOrStdout(), "Wrote %v bytes to %v\n", n, args[1])
				return nil
			})
		},
	}
}

func (c *XkfsCmd) newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CliOpRm + " IMAGE PATH",
		Short: cmdRmShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(args[0], true, func(s *session) error {
				return s.p.Unlink(args[1])
			})
		},
	}
}

func (c *XkfsCmd) newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CliOpMkdir + " IMAGE PATH",
		Short: cmdMkdirShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(args[0], true, func(s *session) error {
				return s.p.Mkdir(args[1])
			})
		},
	}
}

func (c *XkfsCmd) newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   CliOpStat + " IMAGE PATH",
		Short: cmdStatShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(args[0], false, func(s *session) error {
				st, err := s.stat(args[1])
				if err != nil {
					return err
				}
				stdout(cmd.OutOrStdout(), "%v", formatStat(args[1], st))
				return nil
			})
		},
	}
}

func (c *XkfsCmd) newFsckCmd() *cobra.Command {
	var optLeaked bool
	var cmd = &cobra.Command{
		Use:   CliOpFsck + " IMAGE",
		Short: cmdFsckShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(args[0], false, func(s *session) error {
				return s.fsck(cmd.OutOrStdout(), optLeaked)
			})
		},
	}
	cmd.Flags().BoolVar(&optLeaked, CliFlagLeaked, false, "list the leaked block numbers")
	return cmd
}
