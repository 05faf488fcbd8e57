// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the campaign engine server.
//
// The application runs a web server using the Gin framework. It exposes a
// REST API for launching campaigns and polling their status, and serves the
// produced artifacts as static media. The server is instrumented with
// OpenTelemetry for logging, tracing, and metrics.
//
// A campaign launch returns immediately with 202 Accepted: the six branches
// run in the background and their progress is observable through the status
// endpoint, which derives everything from the artifact tree on disk.
//
// Functions:
//   - main: Sets up configuration, telemetry, state, and routes, then runs
//     the server with graceful shutdown.
//   - CampaignRouter: Registers the campaign launch and status routes.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mediaforge/campaign-engine/internal/core/fault"
	"github.com/mediaforge/campaign-engine/internal/core/model"
	"github.com/mediaforge/campaign-engine/internal/telemetry"
)

// main is the primary entry point for the application.
func main() {
	// Overlay any local .env file onto the process environment before the
	// configuration loader reads it.
	_ = godotenv.Load()

	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		CampaignRouter(apiV1)
	}

	// Serve the artifact tree directly. Asset paths reported by the status
	// endpoint are resolvable beneath this route.
	r.Static("/media", config.Application.ArtifactRoot)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("Telemetry Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// launchRequest is the POST /campaigns payload: the plan tier, the requested
// long-form duration, and the creative brief.
type launchRequest struct {
	Plan            string       `json:"plan"`
	LongFormSeconds int          `json:"long_form_seconds"`
	Brief           *model.Brief `json:"brief"`
}

// CampaignRouter sets up the API routes for campaign orchestration.
//
// This function defines the following endpoints:
//   - POST /campaigns: Validates the brief and launches all six branches of
//     a new campaign, returning 202 with the campaign id.
//   - GET /campaigns/:id/status: Derives a point-in-time status snapshot for
//     a campaign from its artifact tree.
func CampaignRouter(r *gin.RouterGroup) {
	campaigns := r.Group("/campaigns")
	{
		// Handler for POST /campaigns
		campaigns.POST("", func(c *gin.Context) {
			var req launchRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			plan := model.PlanTier(req.Plan)
			if plan == "" {
				plan = model.PlanStandard
			}
			if plan != model.PlanStandard && plan != model.PlanPremium {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan tier"})
				return
			}
			if req.LongFormSeconds <= 0 {
				req.LongFormSeconds = 30
			}

			campaign := model.NewCampaign(plan, req.LongFormSeconds)
			// Launch under the process context: the branches outlive this
			// request by design.
			_, err := state.orchestrator.Launch(state.ctx, campaign, req.Brief)
			if err != nil {
				if fault.CategoryOf(err) == fault.CategoryInvalidInput {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				slog.Error("campaign launch failed", "campaign", campaign.ID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "campaign launch failed"})
				return
			}

			c.JSON(http.StatusAccepted, gin.H{
				"id":         campaign.ID,
				"status_url": "/api/v1/campaigns/" + campaign.ID + "/status",
			})
		})

		// Handler for GET /campaigns/:id/status
		campaigns.GET("/:id/status", func(c *gin.Context) {
			id := c.Param("id")
			snapshot, err := state.reporter.Snapshot(id)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, snapshot)
		})
	}
}
