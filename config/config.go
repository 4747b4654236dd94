// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package config loads tool configuration from a YAML file, either
// $DELTA_GO_HOME/.delta-go.yaml or the file of the same name in the user's
// home directory.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	cfgFile           = ".delta-go.yaml"
	defaultMaxWorkers = 5
)

type Config struct {
	LogLevel   string                 `yaml:"log-level"`
	MaxWorkers int                    `yaml:"max-workers"`
	Tables     map[string]TableConfig `yaml:"table"`
}

// TableConfig is a named shortcut for a table's schema file and, optionally,
// a default add-actions file.
type TableConfig struct {
	Schema  string `yaml:"schema"`
	Actions string `yaml:"actions"`
}

func LoadConfig(configPath string) []byte {
	var path string
	if len(configPath) > 0 {
		path = configPath
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(homeDir, cfgFile)
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	return file
}

// ParseTable returns the named table entry, or nil if the config cannot be
// parsed or has no such table.
func ParseTable(file []byte, tableName string) *TableConfig {
	var config Config
	err := yaml.Unmarshal(file, &config)
	if err != nil {
		return nil
	}
	res, ok := config.Tables[tableName]
	if !ok {
		return nil
	}

	return &res
}

func fromConfigFiles() Config {
	dir := os.Getenv("DELTA_GO_HOME")
	if dir != "" {
		dir = filepath.Join(dir, cfgFile)
	}

	var cfg Config
	if err := yaml.Unmarshal(LoadConfig(dir), &cfg); err != nil {
		return cfg
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}

	return cfg
}

var EnvConfig = fromConfigFiles()
