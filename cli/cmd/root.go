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
	"io"
	"os"
	"path"

	"github.com/cubefs/xkfs/fs"
	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/config"
	"github.com/cubefs/xkfs/util/exporter"
	"github.com/cubefs/xkfs/util/log"
	"github.com/spf13/cobra"
)

const (
	cmdRootShort = "xkfs disk image tool"
)

// XkfsCmd is the command tree and the settings shared by every command.
type XkfsCmd struct {
	XkfsCmd *cobra.Command

	configPath string
	logDir     string
	logLevel   string

	cfg *config.Config
	opt *fs.Options
}

func NewRootCmd() *cobra.Command {
	var optShowVersion bool
	c := &XkfsCmd{}
	c.XkfsCmd = &cobra.Command{
		Use:           path.Base(os.Args[0]),
		Short:         cmdRootShort,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if optShowVersion {
				stdout(cmd.OutOrStdout(), "%v", proto.DumpVersion("CLI"))
				return nil
			}
			return cmd.Help()
		},
	}
	c.XkfsCmd.Flags().BoolVarP(&optShowVersion, "version", "v", false, "Show version information")
	flags := c.XkfsCmd.PersistentFlags()
	flags.StringVarP(&c.configPath, CliFlagConfig, "c", "", "config file")
	flags.StringVar(&c.logDir, CliFlagLogDir, "", "write rotating log files to this directory")
	flags.StringVar(&c.logLevel, CliFlagLogLevel, "", "debug, info, warn or error")

	c.XkfsCmd.AddCommand(
		c.newMkfsCmd(),
		c.newListCmd(),
		c.newCatCmd(),
		c.newPutCmd(),
		c.newRmCmd(),
		c.newMkdirCmd(),
		c.newStatCmd(),
		c.newFsckCmd(),
		c.newShellCmd(),
	)
	return c.XkfsCmd
}

// setup loads the config file, starts logging and the metrics endpoint.
// Flags win over config keys.
func (c *XkfsCmd) setup(stderr io.Writer) (err error) {
	if c.configPath != "" {
		if c.cfg, err = config.LoadConfigFile(c.configPath); err != nil {
			return fmt.Errorf("load config %v: %v", c.configPath, err)
		}
	} else if c.cfg, err = config.LoadConfigString("{}"); err != nil {
		return err
	}
	if c.opt, err = fs.NewOptionsFromConfig(c.cfg); err != nil {
		return err
	}
	if c.logDir == "" {
		c.logDir = c.opt.LogDir
	}
	if c.logLevel == "" {
		c.logLevel = c.opt.LogLevel
	}
	level := log.ParseLevel(c.logLevel, log.WarnLevel)
	if c.logDir != "" {
		if _, err = log.NewLog(c.logDir, LogModule, level); err != nil {
			return fmt.Errorf("init log in %v: %v", c.logDir, err)
		}
	} else {
		log.NewWriterLog(stderr, level)
	}
	exporter.Init(LogModule, c.cfg)
	log.LogDebugf("options: %v", c.opt)
	return nil
}

func stdout(w io.Writer, format string, a ...interface{}) {
	_, _ = fmt.Fprintf(w, format, a...)
}
