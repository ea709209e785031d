// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/imoremu/AutoNotion/services/notion"
	"github.com/imoremu/AutoNotion/services/planner"
	"github.com/spf13/cobra"
)

var (
	queryDB        string // "tasks" or "registry"
	queryKind      string // Optional select filter on "Type"
	queryStatusNot string // Optional does-not-equal filter on "Status"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a configured database and print matching pages",
	Long: `Manual query tool for inspecting the configured databases.

Prints the id and name of matching pages as JSON. Useful for verifying
credentials, database ids and filter behavior without touching the
registry.

Examples:
  autonotion query --db tasks --kind Periodic
  autonotion query --db registry --status-not Completed`,
	Run: runQueryCommand,
}

func init() {
	queryCmd.Flags().StringVar(&queryDB, "db", "tasks",
		"Database to query: tasks or registry")
	queryCmd.Flags().StringVar(&queryKind, "kind", "",
		`Filter on the "Type" select property`)
	queryCmd.Flags().StringVar(&queryStatusNot, "status-not", "",
		`Exclude pages whose "Status" equals this value`)
}

type queryResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func runQueryCommand(cmd *cobra.Command, args []string) {
	cfg, err := planner.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	var databaseID string
	switch queryDB {
	case "tasks":
		databaseID = cfg.TasksDatabaseID
	case "registry":
		databaseID = cfg.RegistryDatabaseID
	default:
		fmt.Fprintf(os.Stderr, "Unknown database %q (want tasks or registry)\n", queryDB)
		os.Exit(1)
	}

	var conditions []notion.Filter
	if queryKind != "" {
		conditions = append(conditions, notion.SelectEquals("Type", queryKind))
	}
	if queryStatusNot != "" {
		conditions = append(conditions, notion.StatusNotEquals("Status", queryStatusNot))
	}
	var filter *notion.Filter
	switch len(conditions) {
	case 0:
	case 1:
		filter = &conditions[0]
	default:
		composed := notion.And(conditions...)
		filter = &composed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := notion.NewClient(cfg.APIKey, notion.RetryConfig{
		Attempts: cfg.RetryAttempts,
		Wait:     cfg.RetryWait,
	})
	pages, err := client.QueryDatabase(ctx, databaseID, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	results := make([]queryResult, 0, len(pages))
	for _, page := range pages {
		results = append(results, queryResult{ID: page.ID, Name: page.Title("Name")})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode results: %v\n", err)
		os.Exit(1)
	}
}
