// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command autonotion automates daily task planning against Notion: it
// carries unfinished tasks over from yesterday, materializes periodic
// templates due today, and surfaces alerted tasks into the daily registry.
package main

import (
	"context"
	"os"

	"github.com/imoremu/AutoNotion/pkg/logging"
	"github.com/imoremu/AutoNotion/services/notion"
	"github.com/imoremu/AutoNotion/services/planner"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autonotion",
	Short: "Daily task planning automation for Notion",
	Long: `AutoNotion plans your day in Notion.

Each run duplicates yesterday's unfinished registry tasks into today,
creates instances of periodic task templates that are due, and inserts
alerted objective/punctual tasks whose alert date has arrived.

Configuration comes from the environment: NOTION_API_KEY,
NOTION_TASKS_DB_ID, NOTION_REGISTRY_DB_ID are required;
NOTION_TIMEZONE, RETRY_WAIT_SECONDS, RETRY_ATTEMPTS, SERVICE_LOG_LEVEL
are optional.`,
}

func init() {
	rootCmd.AddCommand(serveCmd, planCmd, queryCmd)
}

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.LevelFromEnv(),
		Service: "autonotion",
	})
	defer logger.Close()
	logger.Install()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newPlanner builds a fresh planner from the environment. Used by every
// trigger path: one planner per run keeps the dedup cache and registry
// schema scoped to that run.
func newPlanner(ctx context.Context) (*planner.Planner, error) {
	cfg, err := planner.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	client := notion.NewClient(cfg.APIKey, notion.RetryConfig{
		Attempts: cfg.RetryAttempts,
		Wait:     cfg.RetryWait,
	})
	return planner.New(ctx, client, cfg), nil
}
