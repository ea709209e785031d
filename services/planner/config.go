// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrMissingConfig marks a configuration failure detected before any
// remote call is made. Callers map it to a distinct user-visible error.
var ErrMissingConfig = errors.New("missing required configuration")

// Config is the environment-driven configuration of a planner run.
type Config struct {
	// APIKey is the Notion integration credential.
	APIKey string `validate:"required"`

	// TasksDatabaseID is the template store holding periodic, objective
	// and punctual task definitions.
	TasksDatabaseID string `validate:"required"`

	// RegistryDatabaseID is the per-day planning database that receives
	// materialized task instances.
	RegistryDatabaseID string `validate:"required"`

	// Timezone is an IANA zone name. Empty or invalid falls back to the
	// host zone.
	Timezone string

	// RetryWait is the fixed delay between remote call attempts.
	RetryWait time.Duration `validate:"min=0"`

	// RetryAttempts is the total attempt count per remote call.
	RetryAttempts int `validate:"min=1"`
}

var validate = validator.New()

// ConfigFromEnv loads the configuration from the environment:
// NOTION_API_KEY, NOTION_TASKS_DB_ID, NOTION_REGISTRY_DB_ID (required),
// NOTION_TIMEZONE, RETRY_WAIT_SECONDS (default 5), RETRY_ATTEMPTS
// (default 3). Fails fast with ErrMissingConfig before any remote call.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:             os.Getenv("NOTION_API_KEY"),
		TasksDatabaseID:    os.Getenv("NOTION_TASKS_DB_ID"),
		RegistryDatabaseID: os.Getenv("NOTION_REGISTRY_DB_ID"),
		Timezone:           os.Getenv("NOTION_TIMEZONE"),
		RetryWait:          5 * time.Second,
		RetryAttempts:      3,
	}

	if v := os.Getenv("RETRY_WAIT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: invalid RETRY_WAIT_SECONDS %q", ErrMissingConfig, v)
		}
		cfg.RetryWait = time.Duration(seconds) * time.Second
	}
	if v := os.Getenv("RETRY_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: invalid RETRY_ATTEMPTS %q", ErrMissingConfig, v)
		}
		cfg.RetryAttempts = attempts
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	return cfg, nil
}

// Location resolves the configured timezone, falling back to the host
// zone when unset or invalid.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		slog.Info("NOTION_TIMEZONE not set, using host timezone")
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("Invalid NOTION_TIMEZONE, falling back to host timezone", "timezone", c.Timezone, "error", err)
		return time.Local
	}
	return loc
}
