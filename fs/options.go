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
	"fmt"

	"github.com/cubefs/xkfs/proto"
	"github.com/cubefs/xkfs/util/config"
	"github.com/juju/errors"
)

// Config keys
const (
	CfgInodeCacheSize     = "inodeCacheSize"
	CfgFileTableSize      = "fileTableSize"
	CfgDescriptorsPerProc = "descriptorsPerProc"
	CfgProcTableSize      = "procTableSize"
	CfgBlockCacheSize     = "blockCacheSize"
	CfgWritable           = "writable"
	CfgReclaimOnUnlink    = "reclaimOnUnlink"
	CfgLogDir             = "logDir"
	CfgLogLevel           = "logLevel"
)

const (
	DefaultInodeCacheSize     = 50
	DefaultFileTableSize      = 100
	DefaultDescriptorsPerProc = 16
	DefaultProcTableSize      = 64
	DefaultBlockCacheSize     = 64
)

// Options sizes the kernel tables and selects the write policy.
type Options struct {
	InodeCacheSize     int    `json:"inodeCacheSize" validate:"min=2"`
	FileTableSize      int    `json:"fileTableSize" validate:"min=2"`
	DescriptorsPerProc int    `json:"descriptorsPerProc" validate:"min=2"`
	ProcTableSize      int    `json:"procTableSize" validate:"min=1"`
	BlockCacheSize     int    `json:"blockCacheSize" validate:"min=1"`
	Writable           bool   `json:"writable"`
	ReclaimOnUnlink    bool   `json:"reclaimOnUnlink"`
	LogDir             string `json:"logDir"`
	LogLevel           string `json:"logLevel" validate:"loglevel"`
}

func DefaultOptions() *Options {
	return &Options{
		InodeCacheSize:     DefaultInodeCacheSize,
		FileTableSize:      DefaultFileTableSize,
		DescriptorsPerProc: DefaultDescriptorsPerProc,
		ProcTableSize:      DefaultProcTableSize,
		BlockCacheSize:     DefaultBlockCacheSize,
	}
}

// NewOptionsFromConfig reads the options from cfg, leaving defaults for
// missing keys.
func NewOptionsFromConfig(cfg *config.Config) (*Options, error) {
	opt := DefaultOptions()
	opt.InodeCacheSize = int(cfg.GetInt64WithDefault(CfgInodeCacheSize, int64(opt.InodeCacheSize)))
	opt.FileTableSize = int(cfg.GetInt64WithDefault(CfgFileTableSize, int64(opt.FileTableSize)))
	opt.DescriptorsPerProc = int(cfg.GetInt64WithDefault(CfgDescriptorsPerProc, int64(opt.DescriptorsPerProc)))
	opt.ProcTableSize = int(cfg.GetInt64WithDefault(CfgProcTableSize, int64(opt.ProcTableSize)))
	opt.BlockCacheSize = int(cfg.GetInt64WithDefault(CfgBlockCacheSize, int64(opt.BlockCacheSize)))
	opt.Writable = cfg.GetBoolWithDefault(CfgWritable, false)
	opt.ReclaimOnUnlink = cfg.GetBoolWithDefault(CfgReclaimOnUnlink, false)
	opt.LogDir = cfg.GetString(CfgLogDir)
	opt.LogLevel = cfg.GetString(CfgLogLevel)
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

func (o *Options) Validate() error {
	if err := config.Validate(o); err != nil {
		return errors.Annotate(proto.ErrInvalidCfg, err.Error())
	}
	return nil
}

func (o *Options) String() string {
	return fmt.Sprintf("Options{InodeCache(%v),FileTable(%v),NOFILE(%v),Procs(%v),BlockCache(%v),Writable(%v),Reclaim(%v)}",
		o.InodeCacheSize, o.FileTableSize, o.DescriptorsPerProc, o.ProcTableSize, o.BlockCacheSize, o.Writable, o.ReclaimOnUnlink)
}
