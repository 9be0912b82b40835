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

package config

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `{
	# cache sizes
	"inodeCacheSize": 64,
	"fileTableSize": "128",
	"blockCacheSize": "lots",
	"writable": true,
	"reclaimOnUnlink": "false",
	"logDir": "/var/log/xkfs#1", # quoted marker stays
	"logLevel": "say \"#hi\"" # escaped quotes stay inside the string
}`

func TestLoadConfigString(t *testing.T) {
	c, err := LoadConfigString(sample)
	require.NoError(t, err)
	require.Equal(t, int64(64), c.GetInt64("inodeCacheSize"))
	require.Equal(t, int64(128), c.GetInt64WithDefault("fileTableSize", 7))
	require.Equal(t, int64(0), c.GetInt64WithDefault("blockCacheSize", 7))
	require.Equal(t, int64(7), c.GetInt64WithDefault("missing", 7))
	require.Equal(t, int64(0), c.GetInt64("logDir"))

	require.True(t, c.GetBoolWithDefault("writable", false))
	require.False(t, c.GetBoolWithDefault("reclaimOnUnlink", true))
	require.True(t, c.GetBoolWithDefault("missing", true))
	require.False(t, c.GetBoolWithDefault("inodeCacheSize", true))

	require.Equal(t, "/var/log/xkfs#1", c.GetString("logDir"))
	require.Equal(t, `say "#hi"`, c.GetString("logLevel"))
	require.Equal(t, "", c.GetString("writable"))
	require.Equal(t, "", c.GetString("missing"))
}

func TestLoadConfigBad(t *testing.T) {
	_, err := LoadConfigString(`{"a": 1,}`)
	require.Error(t, err)
	_, err = LoadConfigString(`# only a comment`)
	require.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	p := path.Join(t.TempDir(), "xkfs.json")
	require.NoError(t, os.WriteFile(p, []byte(sample), 0644))
	c, err := LoadConfigFile(p)
	require.NoError(t, err)
	require.Equal(t, int64(64), c.GetInt64("inodeCacheSize"))

	_, err = LoadConfigFile(path.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	type conf struct {
		Name  string `validate:"required"`
		Size  int    `validate:"min=1"`
		Level string `validate:"loglevel"`
	}
	require.NoError(t, Validate(&conf{Name: "xkfs", Size: 1, Level: "Debug"}))
	require.Error(t, Validate(&conf{Size: 1}))
	require.Error(t, Validate(&conf{Name: "xkfs"}))
	require.Error(t, Validate(&conf{Name: "xkfs", Size: 1, Level: "loud"}))
}
