// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var planPhase string // Empty means the full run

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run the daily plan once and exit",
	Long: `Runs the daily plan against the configured Notion databases.

Without flags all three phases run in order: carry-over of unfinished
tasks, periodic template materialization, alerted task insertion. With
--phase a single phase runs standalone.

Examples:
  autonotion plan                     # full daily plan
  autonotion plan --phase periodic    # only materialize periodic templates`,
	Run: runPlanCommand,
}

func init() {
	planCmd.Flags().StringVar(&planPhase, "phase", "",
		"Run a single phase: carryover, periodic or alerts")
}

func runPlanCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	p, err := newPlanner(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	var created int
	switch planPhase {
	case "":
		created, err = p.RunDailyPlan(ctx)
	case "carryover":
		created, err = p.CarryOverUnfinished(ctx)
	case "periodic":
		created, err = p.GeneratePeriodicTasks(ctx)
	case "alerts":
		created, err = p.AddAlertedTasks(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown phase %q (want carryover, periodic or alerts)\n", planPhase)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Daily plan failed after creating %d tasks: %v\n", created, err)
		os.Exit(1)
	}

	fmt.Printf("Daily plan complete: %d tasks created\n", created)
}
