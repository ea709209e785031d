// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the planner over HTTP. Every plan request runs
// against a fresh Planner instance so the registry schema and the dedup
// cache have request lifetime, matching one planner run per trigger.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/imoremu/AutoNotion/services/planner"
	"github.com/imoremu/AutoNotion/services/planner/observability"
)

// Phase names accepted by RunPhase, aliased to the metric label values so
// route segments and metric labels cannot drift apart.
const (
	PhaseCarryOver = observability.PhaseCarryOver
	PhasePeriodic  = observability.PhasePeriodic
	PhaseAlerts    = observability.PhaseAlerts
)

// PlannerFactory builds a fresh Planner for one request. It returns
// planner.ErrMissingConfig when the environment is incomplete.
type PlannerFactory func(ctx context.Context) (*planner.Planner, error)

// RunResponse is the body of a successful plan request.
type RunResponse struct {
	Status  string `json:"status"`
	RunID   string `json:"run_id"`
	Created int    `json:"created"`
	Message string `json:"message"`
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "autonotion"})
}

// RunDailyPlan executes the full three-phase daily plan.
func RunDailyPlan(newPlanner PlannerFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := uuid.NewString()
		log := slog.With("run_id", runID)
		log.Info("Daily plan triggered over HTTP")

		p, ok := buildPlanner(c, newPlanner)
		if !ok {
			return
		}

		created, err := p.RunDailyPlan(c.Request.Context())
		if err != nil {
			log.Error("Daily plan failed", "error", err, "created", created)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Daily plan failed", "run_id": runID, "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, RunResponse{
			Status:  "success",
			RunID:   runID,
			Created: created,
			Message: "Daily plan executed successfully",
		})
	}
}

// RunPhase executes a single phase standalone. The fresh Planner still
// seeds its dedup cache lazily, so a standalone phase is protected against
// duplicates the same way a full run is.
func RunPhase(newPlanner PlannerFactory, phase string) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := uuid.NewString()
		log := slog.With("run_id", runID, "phase", phase)
		log.Info("Plan phase triggered over HTTP")

		p, ok := buildPlanner(c, newPlanner)
		if !ok {
			return
		}

		var created int
		var err error
		switch phase {
		case PhaseCarryOver:
			created, err = p.CarryOverUnfinished(c.Request.Context())
		case PhasePeriodic:
			created, err = p.GeneratePeriodicTasks(c.Request.Context())
		case PhaseAlerts:
			created, err = p.AddAlertedTasks(c.Request.Context())
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown phase", "phase": phase})
			return
		}
		if err != nil {
			log.Error("Plan phase failed", "error", err, "created", created)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Plan phase failed", "run_id": runID, "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, RunResponse{
			Status:  "success",
			RunID:   runID,
			Created: created,
			Message: "Phase " + phase + " executed successfully",
		})
	}
}

// buildPlanner constructs the per-request Planner, writing the error
// response itself when construction fails.
func buildPlanner(c *gin.Context, newPlanner PlannerFactory) (*planner.Planner, bool) {
	p, err := newPlanner(c.Request.Context())
	if err != nil {
		if errors.Is(err, planner.ErrMissingConfig) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service not configured", "details": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize planner", "details": err.Error()})
		}
		return nil, false
	}
	return p, true
}
