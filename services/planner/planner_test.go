// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imoremu/AutoNotion/services/notion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTasksDB    = "tasks-db"
	testRegistryDB = "registry-db"
)

type createdPage struct {
	databaseID string
	properties map[string]notion.Property
}

// fakeStore routes queries by database and filter shape: registry queries
// carrying a status condition are carry-over lookups, the rest are dedup
// seeds; tasks queries with a bare select-equals are template lookups, the
// rest are alert lookups.
type fakeStore struct {
	registry  []notion.Page
	carryover []notion.Page
	templates []notion.Page
	alerted   []notion.Page

	schema    map[string]struct{}
	schemaErr error

	carryoverErr error
	templatesErr error

	created []createdPage
	queries []string
}

func (s *fakeStore) QueryDatabase(_ context.Context, databaseID string, filter *notion.Filter) ([]notion.Page, error) {
	switch {
	case databaseID == testRegistryDB && hasStatusCondition(filter):
		s.queries = append(s.queries, "carryover")
		return s.carryover, s.carryoverErr
	case databaseID == testRegistryDB:
		s.queries = append(s.queries, "seed")
		return s.registry, nil
	case filter != nil && filter.Select != nil && filter.Select.Equals != "":
		s.queries = append(s.queries, "templates")
		return s.templates, s.templatesErr
	default:
		s.queries = append(s.queries, "alerted")
		return s.alerted, nil
	}
}

func (s *fakeStore) CreatePage(_ context.Context, databaseID string, properties map[string]notion.Property) error {
	s.created = append(s.created, createdPage{databaseID: databaseID, properties: properties})
	return nil
}

func (s *fakeStore) DatabaseProperties(context.Context, string) (map[string]struct{}, error) {
	if s.schemaErr != nil {
		return nil, s.schemaErr
	}
	if s.schema != nil {
		return s.schema, nil
	}
	return schemaOf(fieldName, fieldKind, fieldStatus, fieldSchedule, fieldPlanned, fieldTask), nil
}

func hasStatusCondition(f *notion.Filter) bool {
	if f == nil {
		return false
	}
	if f.Status != nil {
		return true
	}
	for _, child := range f.And {
		if hasStatusCondition(&child) {
			return true
		}
	}
	for _, child := range f.Or {
		if hasStatusCondition(&child) {
			return true
		}
	}
	return false
}

func testConfig() Config {
	return Config{
		APIKey:             "secret",
		TasksDatabaseID:    testTasksDB,
		RegistryDatabaseID: testRegistryDB,
		Timezone:           "UTC",
		RetryWait:          0,
		RetryAttempts:      1,
	}
}

// newTestPlanner pins the clock to 2025-10-14 08:00 UTC, a Tuesday.
func newTestPlanner(t *testing.T, store *fakeStore) *Planner {
	t.Helper()
	p := New(context.Background(), store, testConfig())
	p.now = func() time.Time {
		return time.Date(2025, time.October, 14, 8, 0, 0, 0, time.UTC)
	}
	return p
}

func titleProp(name string) notion.Property {
	return notion.Property{Type: notion.TypeTitle, Title: notion.NewRichText(name)}
}

func selectProp(value string) notion.Property {
	return notion.Property{Type: notion.TypeSelect, Select: &notion.SelectOption{Name: value}}
}

func richTextProp(value string) notion.Property {
	return notion.Property{Type: notion.TypeRichText, RichText: notion.NewRichText(value)}
}

func dailyTemplate(id, name, start, end string) notion.Page {
	props := map[string]notion.Property{
		fieldName:        titleProp(name),
		fieldKind:        selectProp(kindPeriodic),
		fieldPeriodicity: {Type: notion.TypeMultiSelect, MultiSelect: []notion.SelectOption{{Name: string(PeriodicityDaily)}}},
	}
	if start != "" {
		props[fieldStartTime] = richTextProp(start)
	}
	if end != "" {
		props[fieldEndTime] = richTextProp(end)
	}
	return notion.Page{ID: id, Properties: props}
}

func TestRunDailyPlan_MaterializesDueTemplate(t *testing.T) {
	store := &fakeStore{
		templates: []notion.Page{dailyTemplate("template-1", "Daily Standup", "09:00", "09:30")},
	}
	p := newTestPlanner(t, store)

	created, err := p.RunDailyPlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.Len(t, store.created, 1)
	page := store.created[0]
	assert.Equal(t, testRegistryDB, page.databaseID)
	assert.Equal(t, "Daily Standup", page.properties[fieldName].PlainText())

	require.Len(t, page.properties[fieldTask].Relation, 1)
	assert.Equal(t, "template-1", page.properties[fieldTask].Relation[0].ID)

	planned := page.properties[fieldPlanned].Date
	require.NotNil(t, planned)
	assert.Equal(t, "2025-10-14T09:00:00Z", planned.Start)
	assert.Equal(t, "2025-10-14T09:30:00Z", planned.End)
}

func TestRunDailyPlan_SkipsAlreadyScheduledName(t *testing.T) {
	store := &fakeStore{
		registry: []notion.Page{{
			ID: "existing-1",
			Properties: map[string]notion.Property{
				fieldName: titleProp("Daily Standup"),
			},
		}},
		templates: []notion.Page{dailyTemplate("template-1", "Daily Standup", "09:00", "")},
	}
	p := newTestPlanner(t, store)

	created, err := p.RunDailyPlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, store.created)
}

func TestRunDailyPlan_SkipsTemplateNotDueToday(t *testing.T) {
	// 2025-10-14 is a Tuesday; a Monday-only weekly template is not due.
	template := dailyTemplate("template-1", "Weekly Review", "10:00", "")
	template.Properties[fieldPeriodicity] = notion.Property{
		Type:        notion.TypeMultiSelect,
		MultiSelect: []notion.SelectOption{{Name: string(PeriodicityWeekly)}},
	}
	template.Properties[fieldWeekday] = notion.Property{
		Type:        notion.TypeMultiSelect,
		MultiSelect: []notion.SelectOption{{Name: "1"}},
	}

	store := &fakeStore{templates: []notion.Page{template}}
	p := newTestPlanner(t, store)

	created, err := p.RunDailyPlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, store.created)
}

func TestCarryOverUnfinished_ReanchorsTimeOfDay(t *testing.T) {
	store := &fakeStore{
		carryover: []notion.Page{{
			ID: "item-1",
			Properties: map[string]notion.Property{
				fieldName: titleProp("Write report"),
				fieldSchedule: {
					Type: notion.TypeDate,
					Date: &notion.DateRange{Start: "2025-10-13T09:00:00Z", End: "2025-10-13T10:00:00Z"},
				},
				fieldTask: {Type: notion.TypeRelation, Relation: []notion.RelationRef{{ID: "task-9"}}},
			},
		}},
	}
	p := newTestPlanner(t, store)

	created, err := p.CarryOverUnfinished(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.Len(t, store.created, 1)
	props := store.created[0].properties

	planned := props[fieldPlanned].Date
	require.NotNil(t, planned)
	assert.Equal(t, "2025-10-14T09:00:00Z", planned.Start)
	assert.Equal(t, "2025-10-14T10:00:00Z", planned.End)

	assert.NotContains(t, props, fieldSchedule)

	require.Len(t, props[fieldTask].Relation, 1)
	assert.Equal(t, "task-9", props[fieldTask].Relation[0].ID)
}

func TestCarryOverUnfinished_ScheduleWinsOverPlanned(t *testing.T) {
	store := &fakeStore{
		carryover: []notion.Page{{
			ID: "item-1",
			Properties: map[string]notion.Property{
				fieldName: titleProp("Write report"),
				fieldSchedule: {
					Type: notion.TypeDate,
					Date: &notion.DateRange{Start: "2025-10-13T09:00:00Z"},
				},
				fieldPlanned: {
					Type: notion.TypeDate,
					Date: &notion.DateRange{Start: "2025-10-13T15:00:00Z"},
				},
			},
		}},
	}
	p := newTestPlanner(t, store)

	_, err := p.CarryOverUnfinished(context.Background())
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	planned := store.created[0].properties[fieldPlanned].Date
	require.NotNil(t, planned)
	assert.Equal(t, "2025-10-14T09:00:00Z", planned.Start)
}

func TestCarryOverUnfinished_SkipsItemsWithoutNameOrDate(t *testing.T) {
	store := &fakeStore{
		carryover: []notion.Page{
			{ID: "no-name", Properties: map[string]notion.Property{}},
			{ID: "no-date", Properties: map[string]notion.Property{
				fieldName: titleProp("Dateless"),
			}},
		},
	}
	p := newTestPlanner(t, store)

	created, err := p.CarryOverUnfinished(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, store.created)
}

func TestCarryOverWinsNameCollisionAgainstTemplate(t *testing.T) {
	store := &fakeStore{
		carryover: []notion.Page{{
			ID: "item-1",
			Properties: map[string]notion.Property{
				fieldName: titleProp("Daily Standup"),
				fieldSchedule: {
					Type: notion.TypeDate,
					Date: &notion.DateRange{Start: "2025-10-13T08:30:00Z"},
				},
			},
		}},
		templates: []notion.Page{dailyTemplate("template-1", "Daily Standup", "09:00", "")},
	}
	p := newTestPlanner(t, store)

	created, err := p.RunDailyPlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.Len(t, store.created, 1)
	planned := store.created[0].properties[fieldPlanned].Date
	require.NotNil(t, planned)
	assert.Equal(t, "2025-10-14T08:30:00Z", planned.Start,
		"the carried-over copy keeps its own time, the template never fires")
}

func TestRunDailyPlan_AbortsOnPhaseFailure(t *testing.T) {
	store := &fakeStore{
		carryoverErr: errors.New("boom"),
		templates:    []notion.Page{dailyTemplate("template-1", "Daily Standup", "09:00", "")},
	}
	p := newTestPlanner(t, store)

	created, err := p.RunDailyPlan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carryover phase")
	assert.Equal(t, 0, created)
	assert.NotContains(t, store.queries, "templates", "later phases must not run")
}

func TestAddAlertedTasks_CreatesWithNoonFallback(t *testing.T) {
	store := &fakeStore{
		alerted: []notion.Page{{
			ID: "task-3",
			Properties: map[string]notion.Property{
				fieldName: titleProp("Renew passport"),
			},
		}},
	}
	p := newTestPlanner(t, store)

	created, err := p.AddAlertedTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.Len(t, store.created, 1)
	planned := store.created[0].properties[fieldPlanned].Date
	require.NotNil(t, planned)
	assert.Equal(t, "2025-10-14T12:00:00Z", planned.Start)
	assert.Empty(t, planned.End)
}

func TestNew_SchemaFailureDegradesToEmptySchema(t *testing.T) {
	store := &fakeStore{
		schemaErr: errors.New("unreachable"),
		templates: []notion.Page{dailyTemplate("template-1", "Daily Standup", "09:00", "")},
	}
	p := newTestPlanner(t, store)

	created, err := p.GeneratePeriodicTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.Len(t, store.created, 1)
	props := store.created[0].properties
	assert.Equal(t, "Daily Standup", props[fieldName].PlainText())
	assert.NotContains(t, props, fieldTask, "no relation when the schema is unknown")
	assert.NotContains(t, props, fieldKind)
}

func TestStandalonePhaseSeedsDedupCacheLazily(t *testing.T) {
	store := &fakeStore{
		registry: []notion.Page{{
			ID: "existing-1",
			Properties: map[string]notion.Property{
				fieldName: titleProp("Daily Standup"),
			},
		}},
		templates: []notion.Page{dailyTemplate("template-1", "Daily Standup", "09:00", "")},
	}
	p := newTestPlanner(t, store)

	created, err := p.GeneratePeriodicTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	created, err = p.GeneratePeriodicTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	seeds := 0
	for _, q := range store.queries {
		if q == "seed" {
			seeds++
		}
	}
	assert.Equal(t, 1, seeds, "the dedup cache is seeded once per date")
}

func TestClockOf(t *testing.T) {
	p := newTestPlanner(t, &fakeStore{})

	assert.Equal(t, "09:30", p.clockOf("2025-10-13T09:30:00Z"))
	assert.Equal(t, "14:15", p.clockOf("2025-10-13T14:15:00"))
	assert.Equal(t, "00:00", p.clockOf("2025-10-13"))
	assert.Equal(t, "", p.clockOf("not a date"))

	// Zone-aware instants are converted into the configured zone.
	assert.Equal(t, "07:00", p.clockOf("2025-10-13T09:00:00+02:00"))
}

func TestPlannedRange_InvalidClockFallsBackToNoon(t *testing.T) {
	p := newTestPlanner(t, &fakeStore{})
	today := time.Date(2025, time.October, 14, 0, 0, 0, 0, time.UTC)

	planned := p.plannedRange(today, "25:99", "", "task")
	assert.Equal(t, "2025-10-14T12:00:00Z", planned.Start)

	planned = p.plannedRange(today, "09:00", "bogus", "task")
	assert.Equal(t, "2025-10-14T12:00:00Z", planned.Start,
		"a bad end time discards the whole range rather than keeping half of it")
	assert.Empty(t, planned.End)

	planned = p.plannedRange(today, "09:00:30", "", "task")
	assert.Equal(t, "2025-10-14T09:00:30Z", planned.Start)
}
