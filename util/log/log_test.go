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

package log

import (
	"bytes"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLog(dir, "xkfs", DebugLevel)
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 10; i++ {
		LogDebugf("[debug] round %v.", i)
		LogWarnf("[warn] round %v.", i)
		LogErrorf("[error] round %v.", i)
		LogInfof("[info] round %v.", i)
	}

	for _, name := range []string{DebugLogFileName, InfoLogFileName, WarnLogFileName, ErrLogFileName} {
		data, err := os.ReadFile(path.Join(dir, "xkfs"+name))
		require.NoError(t, err)
		require.NotEmpty(t, data)
	}
}

func TestLogLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLog(&buf, WarnLevel)
	defer NewWriterLog(&bytes.Buffer{}, FatalLevel)

	LogDebugf("hidden debug")
	LogInfof("hidden info")
	LogWarnf("shown warn")
	LogErrorf("shown error")

	out := buf.String()
	require.False(t, strings.Contains(out, "hidden"))
	require.True(t, strings.Contains(out, "[WARN.]"))
	require.True(t, strings.Contains(out, "[ERROR]"))
	require.True(t, strings.Contains(out, "log_test.go"))
}

func TestLogPanicf(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLog(&buf, DebugLevel)
	require.PanicsWithValue(t, "bad block 7", func() {
		LogPanicf("bad block %d", 7)
	})
	require.Contains(t, buf.String(), "[FATAL]")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, DebugLevel, ParseLevel("debug", InfoLevel))
	require.Equal(t, WarnLevel, ParseLevel("WARN", InfoLevel))
	require.Equal(t, InfoLevel, ParseLevel("bogus", InfoLevel))
}

func TestNewLogNotDir(t *testing.T) {
	f := path.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0644))
	_, err := NewLog(f, "xkfs", InfoLevel)
	require.Error(t, err)
}
