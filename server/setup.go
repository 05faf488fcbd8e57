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

// Package main contains the setup and initialization logic for the campaign
// engine server. This file builds the centralized state manager holding all
// shared dependencies: the configuration, the provider clients, the artifact
// store, the branch pipeline builder, the orchestrator, and the status
// reporter.
//
// Functions:
//   - SetupOS: Points the configuration loader at the config directory and
//     the runtime environment.
//   - GetConfig: Singleton accessor that loads the TOML configuration once.
//   - InitState: Creates every client and service and wires them together.
package main

import (
	"context"
	"log"
	"os"

	"github.com/mediaforge/campaign-engine/internal/cloud"
	"github.com/mediaforge/campaign-engine/internal/core/commands"
	"github.com/mediaforge/campaign-engine/internal/core/workflow"
	"github.com/mediaforge/campaign-engine/internal/status"
	"github.com/mediaforge/campaign-engine/internal/store"
)

// StateManager holds all the shared dependencies for the server, acting as a
// centralized container so handlers never reach for globals of their own.
type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	store        *store.Store
	orchestrator *workflow.Orchestrator
	reporter     *status.Reporter
	// ctx is the process root context. Campaign launches run under it, not
	// under the HTTP request context, so an early client disconnect never
	// cancels a campaign.
	ctx context.Context
}

// state is the single instance of StateManager for the process.
var state = &StateManager{}

// SetupOS sets the environment variables the configuration loader uses to
// find the TOML files. The runtime defaults to "local"; deployments override
// it before start.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig provides a singleton instance of the application configuration,
// loading it from the TOML files on first use.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState initializes the entire server state: provider clients, the
// artifact store rooted at the configured directory, the parsed prompt
// templates, the pipeline builder, the orchestrator, and the status reporter.
// Any failure here is fatal; the server must not come up half-wired.
func InitState(ctx context.Context) {
	config := GetConfig()
	state.ctx = ctx

	clients, err := cloud.NewServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = clients

	state.store = store.NewStore(config.Application.ArtifactRoot)

	templates, err := workflow.ParseTemplates(config)
	if err != nil {
		panic(err)
	}

	builder := &workflow.Builder{
		Store:     state.store,
		Clients:   clients,
		Config:    config,
		Templates: templates,
		Renderer:  commands.NewFFmpegRenderer(""),
	}
	state.orchestrator = &workflow.Orchestrator{Builder: builder, Config: config}
	state.reporter = status.NewReporter(state.store)
}
