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

package domain

import "time"

// Config holds the orchestration tunables loaded from rasctl.yaml.
// Values are plain seconds so the file stays hand-editable.
type Config struct {
	// PollIntervalSeconds is the delay between status polls while waiting
	// for a connection to converge.
	PollIntervalSeconds float64 `yaml:"poll_interval_seconds"`

	// MaxWaitSeconds caps the total time spent polling for convergence.
	MaxWaitSeconds int `yaml:"max_wait_seconds"`

	// ConnectTimeoutSeconds bounds a single connect/disconnect command.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`

	// QueryTimeoutSeconds bounds a structured profile/status query.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds"`

	// MutateTimeoutSeconds bounds a create/update/delete command.
	MutateTimeoutSeconds int `yaml:"mutate_timeout_seconds"`

	// PromptTimeoutSeconds bounds the interactive credential prompt.
	PromptTimeoutSeconds int `yaml:"prompt_timeout_seconds"`
}

// DefaultConfig returns the shipped defaults.
func DefaultConfig() Config {
	return Config{
		PollIntervalSeconds:   1,
		MaxWaitSeconds:        20,
		ConnectTimeoutSeconds: 20,
		QueryTimeoutSeconds:   10,
		MutateTimeoutSeconds:  20,
		PromptTimeoutSeconds:  120,
	}
}

// Normalize replaces non-positive fields with their defaults so a
// partially filled or mangled config file never produces zero timeouts.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = def.PollIntervalSeconds
	}
	if c.MaxWaitSeconds <= 0 {
		c.MaxWaitSeconds = def.MaxWaitSeconds
	}
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = def.ConnectTimeoutSeconds
	}
	if c.QueryTimeoutSeconds <= 0 {
		c.QueryTimeoutSeconds = def.QueryTimeoutSeconds
	}
	if c.MutateTimeoutSeconds <= 0 {
		c.MutateTimeoutSeconds = def.MutateTimeoutSeconds
	}
	if c.PromptTimeoutSeconds <= 0 {
		c.PromptTimeoutSeconds = def.PromptTimeoutSeconds
	}
	return c
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds * float64(time.Second))
}

func (c Config) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds) * time.Second
}

func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

func (c Config) MutateTimeout() time.Duration {
	return time.Duration(c.MutateTimeoutSeconds) * time.Second
}

func (c Config) PromptTimeout() time.Duration {
	return time.Duration(c.PromptTimeoutSeconds) * time.Second
}
