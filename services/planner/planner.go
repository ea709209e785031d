// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package planner implements the daily plan engine: the recurrence
// evaluator for periodic task templates, the page payload builder, and the
// orchestrator that carries unfinished tasks over from yesterday,
// materializes templates due today, and surfaces alerted tasks into the
// daily registry.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imoremu/AutoNotion/services/notion"
	"github.com/imoremu/AutoNotion/services/planner/observability"
)

// Store is the remote database the planner runs against. *notion.Client
// satisfies it; tests use an in-memory fake.
type Store interface {
	QueryDatabase(ctx context.Context, databaseID string, filter *notion.Filter) ([]notion.Page, error)
	CreatePage(ctx context.Context, databaseID string, properties map[string]notion.Property) error
	DatabaseProperties(ctx context.Context, databaseID string) (map[string]struct{}, error)
}

// Planner coordinates one daily planning run. It is not safe for
// concurrent use: the dedup cache and registry schema are confined to a
// single sequential run, and overlapping runs against the same registry
// need external mutual exclusion.
type Planner struct {
	store Store
	cfg   Config
	loc   *time.Location

	// registrySchema is the set of writable field names the registry
	// accepts, fetched once per instance. Empty on fetch failure, which
	// degrades copying instead of aborting.
	registrySchema map[string]struct{}

	// scheduled maps an ISO date to the task names already present in the
	// registry for that date. Populated lazily per date, discarded with
	// the instance.
	scheduled map[string]map[string]struct{}

	// now is the clock, injectable for tests.
	now func() time.Time
}

// New builds a Planner and fetches the registry schema. A schema fetch
// failure is logged and degrades to an empty schema; subsequent payloads
// copy no extra fields rather than failing the run.
func New(ctx context.Context, store Store, cfg Config) *Planner {
	p := &Planner{
		store:     store,
		cfg:       cfg,
		loc:       cfg.Location(),
		scheduled: make(map[string]map[string]struct{}),
		now:       time.Now,
	}

	schema, err := store.DatabaseProperties(ctx, cfg.RegistryDatabaseID)
	if err != nil {
		slog.Error("Failed to fetch registry schema, continuing with empty schema",
			"database_id", cfg.RegistryDatabaseID, "error", err)
		schema = make(map[string]struct{})
	}
	p.registrySchema = schema
	return p
}

// RunDailyPlan seeds the dedup cache from the registry and runs the three
// phases in priority order: carried-over tasks win name collisions against
// freshly generated ones. The first failing phase aborts the run.
func (p *Planner) RunDailyPlan(ctx context.Context) (int, error) {
	slog.Info("Starting daily plan run")
	today := p.today()

	names, err := p.todaysScheduledNames(ctx, today)
	if err != nil {
		observability.PlanRuns.WithLabelValues("failure").Inc()
		return 0, fmt.Errorf("seed dedup cache: %w", err)
	}
	p.scheduled[dateKey(today)] = names

	total := 0
	phases := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{observability.PhaseCarryOver, p.CarryOverUnfinished},
		{observability.PhasePeriodic, p.GeneratePeriodicTasks},
		{observability.PhaseAlerts, p.AddAlertedTasks},
	}
	for _, phase := range phases {
		created, err := phase.run(ctx)
		total += created
		if err != nil {
			observability.PlanRuns.WithLabelValues("failure").Inc()
			return total, fmt.Errorf("%s phase: %w", phase.name, err)
		}
	}

	observability.PlanRuns.WithLabelValues("success").Inc()
	slog.Info("Daily plan run finished", "created", total)
	return total, nil
}

// CarryOverUnfinished duplicates registry items from yesterday that are
// neither completed nor cancelled into today, re-anchoring each item's
// time of day to today's date.
func (p *Planner) CarryOverUnfinished(ctx context.Context) (created int, err error) {
	defer observePhase(observability.PhaseCarryOver, time.Now())
	slog.Info("Starting carry-over of unfinished tasks")

	today := p.today()
	todayStart := dayStart(today)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	if err := p.ensureSeeded(ctx, today); err != nil {
		return 0, err
	}

	// The API caps and/or nesting at two levels, so the status conditions
	// repeat inside each date-field group instead of factoring out.
	unfinished := func(dateField string) notion.Filter {
		return notion.And(
			notion.StatusNotEquals(fieldStatus, statusCompleted),
			notion.StatusNotEquals(fieldStatus, statusCancelled),
			notion.DateOnOrAfter(dateField, iso(yesterdayStart)),
			notion.DateBefore(dateField, iso(todayStart)),
		)
	}
	filter := notion.Or(unfinished(fieldSchedule), unfinished(fieldPlanned))

	pages, err := p.store.QueryDatabase(ctx, p.cfg.RegistryDatabaseID, &filter)
	if err != nil {
		return 0, err
	}
	slog.Info("Found unfinished tasks from yesterday", "count", len(pages))

	for _, page := range pages {
		name := page.Title(fieldName)
		if name == "" {
			slog.Warn("Skipping carry-over item without a name", "page_id", page.ID)
			observability.ItemsSkipped.WithLabelValues(observability.PhaseCarryOver, "no_name").Inc()
			continue
		}

		// The original occurrence time takes priority over a previously
		// planned one when both are present.
		source := page.Properties[fieldSchedule].Date
		if source == nil {
			source = page.Properties[fieldPlanned].Date
		}
		if source == nil {
			slog.Warn("Skipping carry-over item without a date", "task", name)
			observability.ItemsSkipped.WithLabelValues(observability.PhaseCarryOver, "no_date").Inc()
			continue
		}

		if p.isScheduled(today, name) {
			slog.Info("Task already scheduled for today, skipping carry-over", "task", name)
			observability.ItemsSkipped.WithLabelValues(observability.PhaseCarryOver, "duplicate").Inc()
			continue
		}

		startClock := p.clockOf(source.Start)
		endClock := ""
		if source.End != "" {
			endClock = p.clockOf(source.End)
		}
		planned := p.plannedRange(today, startClock, endClock, name)

		payload := buildPagePayload(page, name, planned, p.registrySchema)
		if err := p.store.CreatePage(ctx, p.cfg.RegistryDatabaseID, payload); err != nil {
			return created, err
		}
		p.markScheduled(today, name)
		created++
		observability.PagesCreated.WithLabelValues(observability.PhaseCarryOver).Inc()
		slog.Info("Carried over unfinished task", "task", name)
	}

	return created, nil
}

// GeneratePeriodicTasks materializes periodic templates whose recurrence
// descriptor produces an occurrence today.
func (p *Planner) GeneratePeriodicTasks(ctx context.Context) (created int, err error) {
	defer observePhase(observability.PhasePeriodic, time.Now())
	slog.Info("Starting periodic task generation")

	today := p.today()
	if err := p.ensureSeeded(ctx, today); err != nil {
		return 0, err
	}

	filter := notion.SelectEquals(fieldKind, kindPeriodic)
	pages, err := p.store.QueryDatabase(ctx, p.cfg.TasksDatabaseID, &filter)
	if err != nil {
		return 0, err
	}
	slog.Info("Found periodic templates", "count", len(pages))

	for _, page := range pages {
		name := page.Title(fieldName)
		if name == "" {
			slog.Warn("Skipping periodic template without a name", "page_id", page.ID)
			observability.ItemsSkipped.WithLabelValues(observability.PhasePeriodic, "no_name").Inc()
			continue
		}
		if p.isScheduled(today, name) {
			slog.Info("Task already scheduled for today, skipping", "task", name)
			observability.ItemsSkipped.WithLabelValues(observability.PhasePeriodic, "duplicate").Inc()
			continue
		}

		if !recurrenceFromPage(page.Properties).DueOn(today) {
			observability.ItemsSkipped.WithLabelValues(observability.PhasePeriodic, "not_due").Inc()
			continue
		}

		if err := p.createFromTemplate(ctx, page, name, today, observability.PhasePeriodic); err != nil {
			return created, err
		}
		created++
		slog.Info("Materialized periodic task", "task", name)
	}

	return created, nil
}

// AddAlertedTasks surfaces non-periodic, non-completed tasks whose alert
// date is on or before today into the registry.
func (p *Planner) AddAlertedTasks(ctx context.Context) (created int, err error) {
	defer observePhase(observability.PhaseAlerts, time.Now())
	slog.Info("Starting alerted task insertion")

	today := p.today()
	if err := p.ensureSeeded(ctx, today); err != nil {
		return 0, err
	}

	filter := notion.And(
		notion.SelectNotEquals(fieldKind, kindPeriodic),
		notion.StatusNotEquals(fieldStatus, statusCompleted),
		notion.DateOnOrBefore(fieldAlertDate, dateKey(today)),
	)
	pages, err := p.store.QueryDatabase(ctx, p.cfg.TasksDatabaseID, &filter)
	if err != nil {
		return 0, err
	}
	slog.Info("Found alerted tasks", "count", len(pages))

	for _, page := range pages {
		name := page.Title(fieldName)
		if name == "" {
			slog.Warn("Skipping alerted task without a name", "page_id", page.ID)
			observability.ItemsSkipped.WithLabelValues(observability.PhaseAlerts, "no_name").Inc()
			continue
		}
		if p.isScheduled(today, name) {
			slog.Info("Task already scheduled for today, skipping", "task", name)
			observability.ItemsSkipped.WithLabelValues(observability.PhaseAlerts, "duplicate").Inc()
			continue
		}

		if err := p.createFromTemplate(ctx, page, name, today, observability.PhaseAlerts); err != nil {
			return created, err
		}
		created++
		slog.Info("Added alerted task", "task", name)
	}

	return created, nil
}

// createFromTemplate builds today's planned time from the template's clock
// string fields and creates the registry page.
func (p *Planner) createFromTemplate(ctx context.Context, page notion.Page, name string, today time.Time, phase string) error {
	start := page.Properties[fieldStartTime].PlainText()
	end := page.Properties[fieldEndTime].PlainText()
	planned := p.plannedRange(today, start, end, name)

	payload := buildPagePayload(page, name, planned, p.registrySchema)
	if err := p.store.CreatePage(ctx, p.cfg.RegistryDatabaseID, payload); err != nil {
		return err
	}
	p.markScheduled(today, name)
	observability.PagesCreated.WithLabelValues(phase).Inc()
	return nil
}

// todaysScheduledNames queries the registry for every item whose original
// or planned time falls on the given day and returns their names.
func (p *Planner) todaysScheduledNames(ctx context.Context, today time.Time) (map[string]struct{}, error) {
	start := dayStart(today)
	end := start.AddDate(0, 0, 1)

	onToday := func(dateField string) notion.Filter {
		return notion.And(
			notion.DateOnOrAfter(dateField, iso(start)),
			notion.DateBefore(dateField, iso(end)),
		)
	}
	filter := notion.Or(onToday(fieldSchedule), onToday(fieldPlanned))

	pages, err := p.store.QueryDatabase(ctx, p.cfg.RegistryDatabaseID, &filter)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(pages))
	for _, page := range pages {
		if name := page.Title(fieldName); name != "" {
			names[name] = struct{}{}
		}
	}
	slog.Info("Seeded today's dedup cache", "scheduled", len(names))
	return names, nil
}

// ensureSeeded populates the dedup cache for today on first access within
// this instance. Phases invoked standalone get the same protection a full
// run does.
func (p *Planner) ensureSeeded(ctx context.Context, today time.Time) error {
	key := dateKey(today)
	if _, ok := p.scheduled[key]; ok {
		return nil
	}
	names, err := p.todaysScheduledNames(ctx, today)
	if err != nil {
		return fmt.Errorf("seed dedup cache: %w", err)
	}
	p.scheduled[key] = names
	return nil
}

func (p *Planner) isScheduled(today time.Time, name string) bool {
	_, ok := p.scheduled[dateKey(today)][name]
	return ok
}

func (p *Planner) markScheduled(today time.Time, name string) {
	key := dateKey(today)
	if p.scheduled[key] == nil {
		p.scheduled[key] = make(map[string]struct{})
	}
	p.scheduled[key][name] = struct{}{}
}

// plannedRange builds today's occurrence time from clock strings
// ("HH:MM", seconds tolerated). A missing start or any parse failure
// falls back to local noon; the item is never aborted over a bad time.
func (p *Planner) plannedRange(today time.Time, startClock, endClock, name string) *notion.DateRange {
	noon := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, p.loc)

	if startClock == "" {
		slog.Debug("No start time, defaulting to noon", "task", name)
		return &notion.DateRange{Start: iso(noon)}
	}

	start, err := parseClock(startClock)
	if err != nil {
		slog.Warn("Invalid start time, defaulting to noon", "task", name, "start", startClock, "error", err)
		return &notion.DateRange{Start: iso(noon)}
	}
	planned := &notion.DateRange{Start: iso(p.onDay(today, start))}

	if endClock != "" {
		end, err := parseClock(endClock)
		if err != nil {
			slog.Warn("Invalid end time, defaulting to noon", "task", name, "end", endClock, "error", err)
			return &notion.DateRange{Start: iso(noon)}
		}
		planned.End = iso(p.onDay(today, end))
	}

	return planned
}

// clockOf extracts the local time of day from a date property value,
// converting zone-aware instants into the configured timezone. Returns ""
// when the value does not parse; the caller's noon fallback covers it.
func (p *Planner) clockOf(value string) string {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(p.loc).Format("15:04")
	}
	// Zone-naive values keep their wall clock as stored.
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t.Format("15:04")
	}
	if _, err := time.Parse("2006-01-02", value); err == nil {
		return "00:00"
	}
	slog.Warn("Unparseable date value", "value", value)
	return ""
}

func (p *Planner) onDay(day time.Time, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, p.loc)
}

func (p *Planner) today() time.Time {
	return p.now().In(p.loc)
}

func parseClock(value string) (time.Time, error) {
	if t, err := time.Parse("15:04", value); err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", value)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func iso(t time.Time) string {
	return t.Format(time.RFC3339)
}

func observePhase(phase string, start time.Time) {
	observability.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
