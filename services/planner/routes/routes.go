// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/imoremu/AutoNotion/services/planner/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the planner's HTTP surface on the router.
func SetupRoutes(router *gin.Engine, newPlanner handlers.PlannerFactory) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		plan := v1.Group("/plan")
		{
			plan.POST("/run", handlers.RunDailyPlan(newPlanner))
			plan.POST("/carryover", handlers.RunPhase(newPlanner, handlers.PhaseCarryOver))
			plan.POST("/periodic", handlers.RunPhase(newPlanner, handlers.PhasePeriodic))
			plan.POST("/alerts", handlers.RunPhase(newPlanner, handlers.PhaseAlerts))
		}
	}
}
