// Copyright 2025.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"

	"github.com/mcwurzn/rasctl/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Manager loads and saves the application configuration file.
type Manager struct {
	filePath string
}

// NewManager creates a new instance of Manager for the given file path.
func NewManager(filePath string) *Manager {
	return &Manager{filePath: filePath}
}

// Load reads the configuration file. A missing file is created with
// defaults; an unreadable or unparsable file yields the defaults
// together with the error so callers can warn and continue.
func (m *Manager) Load() (domain.Config, error) {
	if _, err := os.Stat(m.filePath); os.IsNotExist(err) {
		defaultConfig := domain.DefaultConfig()
		// Best effort: the defaults are usable even if they cannot be written.
		_ = m.Save(defaultConfig)
		return defaultConfig, nil
	}

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		return domain.DefaultConfig(), err
	}

	var config domain.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return domain.DefaultConfig(), err
	}

	return config.Normalize(), nil
}

// Save writes the configuration file, creating its directory first.
func (m *Manager) Save(config domain.Config) error {
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(m.filePath, data, 0o600)
}
