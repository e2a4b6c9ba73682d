// Copyright 2025 Poiesic Systems
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


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// ExtractorHost is the base URL for the extraction service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	ExtractorHost string

	// ExtractorModel is the model identifier to use for entity extraction.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	ExtractorModel string

	// MinConfidence is the minimum confidence (0-1) for extracted
	// candidates. Candidates below this threshold are filtered out
	// before reaching the merge engine.
	// Default: 0.5
	MinConfidence float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithExtractorHost sets the extraction service host URL.
func WithExtractorHost(host string) ConfigOption {
	return func(c *Config) {
		c.ExtractorHost = host
	}
}

// WithExtractorModel sets the extraction model identifier.
func WithExtractorModel(model string) ConfigOption {
	return func(c *Config) {
		c.ExtractorModel = model
	}
}

// WithMinConfidence sets the minimum confidence threshold for candidates.
func WithMinConfidence(min float64) ConfigOption {
	return func(c *Config) {
		c.MinConfidence = min
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		ExtractorHost:  "http://localhost:11434/v1",
		ExtractorModel: "qwen2.5:3b",
		MinConfidence:  0.5,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithExtractorHost("http://localhost:11434/v1"),
//	    WithExtractorModel("gpt-4o-mini"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.ExtractorHost != "" && !strings.HasSuffix(c.ExtractorHost, "/v1") {
		c.ExtractorHost = strings.TrimSuffix(c.ExtractorHost, "/")
		c.ExtractorHost = c.ExtractorHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.ExtractorHost == "" {
		return errors.New("ai config: ExtractorHost is required")
	}
	if c.ExtractorModel == "" {
		return errors.New("ai config: ExtractorModel is required")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.New("ai config: MinConfidence must be between 0 and 1")
	}
	return nil
}
