// Copyright 2018 The Chubao Authors.
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

// Package config reads the JSON configuration of xkfs. Lines may carry
// comments starting with '#' outside of string literals.
package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strconv"

	"github.com/juju/errors"
)

const commentMarker = '#'

// Config holds the decoded top-level keys of a configuration.
type Config struct {
	data map[string]interface{}
}

// LoadConfigFile loads the configuration stored in path.
func LoadConfigFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c, err := LoadConfigBytes(raw)
	if err != nil {
		return nil, errors.Annotatef(err, "config %v", path)
	}
	return c, nil
}

// LoadConfigString loads a configuration from s.
func LoadConfigString(s string) (*Config, error) {
	return LoadConfigBytes([]byte(s))
}

// LoadConfigBytes strips comments from raw and decodes the JSON object left.
func LoadConfigBytes(raw []byte) (*Config, error) {
	c := &Config{data: make(map[string]interface{})}
	if err := json.Unmarshal(stripComments(raw), &c.data); err != nil {
		return nil, errors.Annotate(err, "decode config")
	}
	return c, nil
}

func stripComments(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Bytes()
		inString, escaped := false, false
		end := len(line)
		for i, ch := range line {
			if escaped {
				escaped = false
				continue
			}
			switch {
			case ch == '\\' && inString:
				escaped = true
			case ch == '"':
				inString = !inString
			case ch == commentMarker && !inString:
				end = i
			}
			if end != len(line) {
				break
			}
		}
		out = append(out, line[:end]...)
		out = append(out, '\n')
	}
	return out
}

// GetString returns the string under key, or "" when it is missing or not
// a string.
func (c *Config) GetString(key string) string {
	s, _ := c.data[key].(string)
	return s
}

// GetInt64 returns the integer under key. Numbers and decimal strings are
// accepted; anything else reads as 0.
func (c *Config) GetInt64(key string) int64 {
	return c.GetInt64WithDefault(key, 0)
}

// GetInt64WithDefault is GetInt64 returning defval for a missing key.
func (c *Config) GetInt64WithDefault(key string, defval int64) int64 {
	switch v := c.data[key].(type) {
	case nil:
		return defval
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// GetBoolWithDefault returns the bool under key, accepting "true" and
// "false" strings, and defval when the key is missing.
func (c *Config) GetBoolWithDefault(key string, defval bool) bool {
	switch v := c.data[key].(type) {
	case nil:
		return defval
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
