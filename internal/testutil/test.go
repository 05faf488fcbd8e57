// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutil provides utility functions and fake providers to support
// the application's test suite. It helps in setting up a consistent test
// environment, loading test-specific configuration, and standing in for the
// external generation providers so tests never leave the local machine.
package testutil

import (
	"log"
	"os"
	"testing"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/model"
)

// StateManager acts as a simple in-memory cache for the application
// configuration during test runs, so the TOML files are parsed only once per
// test binary.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil. Convenience to reduce
// boilerplate error checking in tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// SetupOS configures the environment variables the configuration loader
// depends on, directing it at the test configuration files
// (configs/.env.test.toml).
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration. The first
// call loads the TOML files; subsequent calls return the cached struct.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// TestBrief returns a populated brief that passes validation.
func TestBrief() *model.Brief {
	return &model.Brief{
		Topic:             "Aurora trail running shoes spring launch",
		BrandStrategy:     "Premium outdoor performance for everyday athletes",
		ContentGuidelines: "Energetic, second person, no superlatives",
		VisualBrief:       "Dawn light, mountain trails, motion blur on strides",
		CallToAction:      "Find your trail at aurora.example.com",
		Keywords:          []string{"trail running", "spring gear"},
		ImageCount:        3,
	}
}
