// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imoremu/AutoNotion/services/planner"
	"github.com/imoremu/AutoNotion/services/planner/routes"
	"github.com/spf13/cobra"
)

var (
	servePort    string // HTTP listen port
	serveDailyAt string // Optional "HH:MM" local daily trigger
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server with manual and scheduled plan triggers",
	Long: `Starts the HTTP server exposing the daily plan.

Endpoints:
  GET  /health              liveness
  GET  /metrics             prometheus metrics
  POST /v1/plan/run         full daily plan
  POST /v1/plan/carryover   carry-over phase only
  POST /v1/plan/periodic    periodic phase only
  POST /v1/plan/alerts      alerted-task phase only

With --daily-at (or DAILY_PLAN_AT) the full plan also runs once a day at
the given local wall-clock time.`,
	Run: runServeCommand,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "",
		"Listen port (default PORT env or 8080)")
	serveCmd.Flags().StringVar(&serveDailyAt, "daily-at", "",
		"Run the full plan daily at this local time, e.g. 06:30 (default DAILY_PLAN_AT env)")
}

func runServeCommand(cmd *cobra.Command, args []string) {
	port := servePort
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}

	dailyAt := serveDailyAt
	if dailyAt == "" {
		dailyAt = os.Getenv("DAILY_PLAN_AT")
	}
	if dailyAt != "" {
		go runDailyAt(dailyAt)
	}

	router := gin.Default()
	routes.SetupRoutes(router, newPlanner)

	slog.Info("Starting AutoNotion server", "port", port, "daily_at", dailyAt)
	if err := router.Run(":" + port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// nextRunAt returns the next occurrence of the "HH:MM" wall-clock time in
// loc strictly after now. A time already passed today (or equal to now)
// rolls over to tomorrow.
func nextRunAt(now time.Time, clock string, loc *time.Location) (time.Time, error) {
	at, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// runDailyAt runs the full plan once a day at the given "HH:MM" wall-clock
// time in the configured timezone. Each firing uses a fresh planner;
// failures are logged and the next day's run still happens.
func runDailyAt(clock string) {
	loc := time.Local
	if cfg, err := planner.ConfigFromEnv(); err == nil {
		loc = cfg.Location()
	}

	if _, err := nextRunAt(time.Now(), clock, loc); err != nil {
		slog.Error("Invalid daily trigger time, scheduler disabled", "daily_at", clock, "error", err)
		return
	}

	for {
		next, _ := nextRunAt(time.Now(), clock, loc)
		slog.Info("Next scheduled daily plan", "at", next.Format(time.RFC3339))
		time.Sleep(time.Until(next))

		ctx := context.Background()
		p, err := newPlanner(ctx)
		if err != nil {
			slog.Error("Scheduled daily plan cannot start", "error", err)
			continue
		}
		if created, err := p.RunDailyPlan(ctx); err != nil {
			slog.Error("Scheduled daily plan failed", "error", err, "created", created)
		} else {
			slog.Info("Scheduled daily plan finished", "created", created)
		}
	}
}
