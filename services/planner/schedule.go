// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

import (
	"strconv"
	"time"

	"github.com/imoremu/AutoNotion/services/notion"
)

// Periodicity is one recurrence cadence of a periodic task template. A
// template may carry several; they combine as OR.
type Periodicity string

const (
	PeriodicityDaily   Periodicity = "Daily"
	PeriodicityWeekly  Periodicity = "Weekly"
	PeriodicityMonthly Periodicity = "Monthly"
	PeriodicityYearly  Periodicity = "Yearly"
)

// MonthWeek names an ordinal week within a month for monthly rules.
type MonthWeek string

const (
	WeekFirst  MonthWeek = "1st"
	WeekSecond MonthWeek = "2nd"
	WeekThird  MonthWeek = "3rd"
	WeekFourth MonthWeek = "4th"
	WeekLast   MonthWeek = "Last"
)

var ordinalWeeks = map[MonthWeek]int{
	WeekFirst:  1,
	WeekSecond: 2,
	WeekThird:  3,
	WeekFourth: 4,
}

// Recurrence is the scheduling descriptor of a periodic task template.
// Weekdays hold ISO weekday numbers (1=Monday .. 7=Sunday), MonthDays
// calendar days 1-31, Months calendar months 1-12.
type Recurrence struct {
	Periodicities []Periodicity
	Weekdays      map[int]bool
	MonthDays     map[int]bool
	MonthWeeks    map[MonthWeek]bool
	Months        map[int]bool
}

// DueOn reports whether the descriptor produces an occurrence on the given
// date. Rules are checked in the order Daily, Weekly, Monthly, Yearly and
// the first match wins; with OR semantics the order is unobservable but
// Daily short-circuits everything else. An empty periodicity set never
// occurs.
func (r Recurrence) DueOn(day time.Time) bool {
	if len(r.Periodicities) == 0 {
		return false
	}

	has := make(map[Periodicity]bool, len(r.Periodicities))
	for _, p := range r.Periodicities {
		has[p] = true
	}

	if has[PeriodicityDaily] {
		return true
	}

	weekday := isoWeekday(day)

	if has[PeriodicityWeekly] && r.Weekdays[weekday] {
		return true
	}

	if has[PeriodicityMonthly] {
		if r.MonthDays[day.Day()] {
			return true
		}
		// Week-based rule: requires both a week-of-month and a weekday
		// selection. The "Last" match and each ordinal match are separate
		// conditions, not branches of one another.
		if len(r.MonthWeeks) > 0 && len(r.Weekdays) > 0 && r.Weekdays[weekday] {
			if r.MonthWeeks[WeekLast] && day.Day() > daysInMonth(day)-7 {
				return true
			}
			week := weekOfMonth(day)
			for ordinal, number := range ordinalWeeks {
				if r.MonthWeeks[ordinal] && week == number {
					return true
				}
			}
		}
	}

	if has[PeriodicityYearly] &&
		r.Months[int(day.Month())] && r.MonthDays[day.Day()] {
		return true
	}

	return false
}

// recurrenceFromPage reads the scheduling descriptor off a task template's
// multi-select properties. Option values that do not parse as numbers are
// ignored.
func recurrenceFromPage(props map[string]notion.Property) Recurrence {
	r := Recurrence{
		Weekdays:   numberSet(props[fieldWeekday]),
		MonthDays:  numberSet(props[fieldMonthDay]),
		Months:     numberSet(props[fieldMonth]),
		MonthWeeks: make(map[MonthWeek]bool),
	}
	for _, name := range props[fieldPeriodicity].MultiSelectNames() {
		r.Periodicities = append(r.Periodicities, Periodicity(name))
	}
	for _, name := range props[fieldMonthWeek].MultiSelectNames() {
		r.MonthWeeks[MonthWeek(name)] = true
	}
	return r
}

func numberSet(prop notion.Property) map[int]bool {
	set := make(map[int]bool)
	for _, name := range prop.MultiSelectNames() {
		if n, err := strconv.Atoi(name); err == nil {
			set[n] = true
		}
	}
	return set
}

// isoWeekday maps Go's Sunday-based weekday to ISO numbering (Monday=1).
func isoWeekday(day time.Time) int {
	wd := int(day.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// weekOfMonth returns the 1-based ordinal week of the month the day falls
// in: days 1-7 are week 1, 8-14 week 2, and so on.
func weekOfMonth(day time.Time) int {
	return (day.Day()-1)/7 + 1
}

// daysInMonth returns the number of calendar days in the day's month.
func daysInMonth(day time.Time) int {
	return time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, day.Location()).Day()
}
