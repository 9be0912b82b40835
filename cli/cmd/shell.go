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
	"os"
	"path"
	"path/filepath"

	"github.com/desertbit/grumble"
	"github.com/fatih/color"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

const cmdShellShort = "Explore an image interactively"

func (c *XkfsCmd) newShellCmd() *cobra.Command {
	var optWritable bool
	var cmd = &cobra.Command{
		Use:   CliOpShell + " IMAGE",
		Short: cmdShellShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(args[0], optWritable, func(s *session) error {
				// grumble parses os.Args itself; our arguments are not its commands
				os.Args = os.Args[:1]
				return newShell(s).Run()
			})
		},
	}
	cmd.Flags().BoolVar(&optWritable, CliFlagWritable, false, "allow commands that modify the image")
	return cmd
}

type shell struct {
	s   *session
	out io.Writer
	cwd string
}

func (sh *shell) abs(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(sh.cwd, p)
}

func newShell(s *session) *grumble.App {
	sh := &shell{s: s, out: os.Stdout, cwd: "/"}
	app := grumble.New(&grumble.Config{
		Name:                  "xkfs",
		Description:           "xkfs image explorer",
		HistoryFile:           filepath.Join(os.TempDir(), ".xkfs_shell.history"),
		HistoryLimit:          1000,
		ErrorColor:            color.New(color.FgRed, color.Bold),
		HelpHeadlineColor:     color.New(color.FgGreen),
		HelpHeadlineUnderline: false,
		HelpSubCommands:       true,
		Prompt:                "xkfs $> ",
		PromptColor:           color.New(color.FgBlue, color.Bold),
	})
	sh.register(app)
	return app
}

func pathArg(help string) func(a *grumble.Args) {
	return func(a *grumble.Args) {
		a.String("path", help, grumble.Default("."))
	}
}

func (sh *shell) register(app *grumble.App) {
	s := sh.s
	app.AddCommand(&grumble.Command{
		Name: "ls",
		Help: "list a directory",
		Args: pathArg("directory to list"),
		Run: func(c *grumble.Context) error {
			return s.list(sh.out, c.Args.String("path"))
		},
	})
	app.AddCommand(&grumble.Command{
		Name: "cd",
		Help: "change the working directory",
		Args: func(a *grumble.Args) {
			a.String("path", "new working directory", grumble.Default("/"))
		},
		Run: func(c *grumble.Context) error {
			p := c.Args.String("path")
			if err := s.p.Chdir(p); err != nil {
				return err
			}
			sh.cwd = sh.abs(p)
			c.App.SetPrompt("xkfs " + sh.cwd + " $> ")
			return nil
		},
	})
	app.AddCommand(&grumble.Command{
		Name: "pwd",
		Help: "print the working directory",
		Run: func(c *grumble.Context) error {
			stdout(sh.out, "%v\n", sh.cwd)
			return nil
		},
	})
	app.AddCommand(&grumble.Command{
		Name: "cat",
		Help: "print a file",
		Args: func(a *grumble.Args) {
			a.String("path", "file to print")
		},
		Run: func(c *grumble.Context) error {
			return s.cat(sh.out, c.Args.String("path"))
		},
	})
	app.AddCommand(&grumble.Command{
		Name: "stat",
		Help: "show the metadata of a path",
		Args: pathArg("path to inspect"),
		Run: func(c *grumble.Context) error {
			p := c.Args.String("path")
			st, err := s.stat(p)
			if err != nil {
				return err
			}
			stdout(sh.out, "%v", formatStat(sh.abs(p), st))
			return nil
		},
	})
	app.AddCommand(&grumble.Command{
		Name: "put",
		Help: "copy a local file into the image",
		Args: func(a *grumble.Args) {
			a.String("path", "destination in the image")
			a.String("local", "local file to copy")
		},
		Run: func(c *grumble.Context) error {
			fp, err := os.Open(c.Args.String("local"))
			if err != nil {
				return err
			}
			defer fp.Close()
			n, err := s.put(c.Args.String("path"), fp)
			if err != nil {
				return errors.Annotatef(err, "put %v", c.Args.String("path"))
			}
			stdout(sh.out, "Wrote %v bytes\n", n)
			return nil
		},
	})
	app.AddCommand(&grumble.Command{
		Name: "rm",
		Help: "unlink a file",
		Args: func(a *grumble.Args) {
			a.String("path", "file to unlink")
		},
		Run: func(c *grumble.Context) error {
			return s.p.Unlink(c.Args.String("path"))
		},
	})
	app.AddCommand(&grumble.Command{
		Name: "mkdir",
		Help: "make a directory",
		Args: func(a *grumble.Args) {
			a.String("path", "directory to make")
		},
		Run: func(c *grumble.Context) error {
			return s.p.Mkdir(c.Args.String("path"))
		},
	})
	app.AddCommand(&grumble.Command{
		Name: "fsck",
		Help: "check the image",
		Flags: func(f *grumble.Flags) {
			f.Bool("l", CliFlagLeaked, false, "list the leaked block numbers")
		},
		Run: func(c *grumble.Context) error {
			return s.fsck(sh.out, c.Flags.Bool(CliFlagLeaked))
		},
	})
}
