// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

// Property names shared by the tasks database and the daily registry.
// The registry distinguishes the original occurrence time (fieldSchedule)
// from the time planned for today (fieldPlanned); only the latter is ever
// written to a new registry page.
const (
	fieldName      = "Name"
	fieldKind      = "Type"
	fieldStatus    = "Status"
	fieldSchedule  = "Schedule"
	fieldPlanned   = "Planned Schedule"
	fieldAlertDate = "Alert Date"
	fieldTask      = "Task"

	fieldPeriodicity = "Periodicity"
	fieldWeekday     = "Week Day"
	fieldMonthDay    = "Month Day"
	fieldMonthWeek   = "Month Week"
	fieldMonth       = "Month"
	fieldStartTime   = "Start Time"
	fieldEndTime     = "End Time"
)

// Select values of the task kind and status properties.
const (
	kindPeriodic = "Periodic"

	statusCompleted = "Completed"
	statusCancelled = "Cancelled"
)
