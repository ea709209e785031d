// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRunAt(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	tests := []struct {
		name  string
		now   time.Time
		clock string
		loc   *time.Location
		want  time.Time
	}{
		{
			name:  "later today",
			now:   time.Date(2025, time.October, 14, 8, 0, 0, 0, time.UTC),
			clock: "09:30",
			loc:   time.UTC,
			want:  time.Date(2025, time.October, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "already passed rolls to tomorrow",
			now:   time.Date(2025, time.October, 14, 10, 0, 0, 0, time.UTC),
			clock: "09:30",
			loc:   time.UTC,
			want:  time.Date(2025, time.October, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "exactly now rolls to tomorrow",
			now:   time.Date(2025, time.October, 14, 9, 30, 0, 0, time.UTC),
			clock: "09:30",
			loc:   time.UTC,
			want:  time.Date(2025, time.October, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "rolls over a month boundary",
			now:   time.Date(2025, time.October, 31, 23, 0, 0, 0, time.UTC),
			clock: "06:30",
			loc:   time.UTC,
			want:  time.Date(2025, time.November, 1, 6, 30, 0, 0, time.UTC),
		},
		{
			name: "clock is interpreted in the configured zone",
			// 04:00 UTC is 06:00 in Madrid (CEST), so 06:30 Madrid is
			// still ahead.
			now:   time.Date(2025, time.October, 14, 4, 0, 0, 0, time.UTC),
			clock: "06:30",
			loc:   madrid,
			want:  time.Date(2025, time.October, 14, 6, 30, 0, 0, madrid),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextRunAt(tt.now, tt.clock, tt.loc)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "nextRunAt() = %v, want %v", got, tt.want)
			assert.True(t, got.After(tt.now), "next firing must be strictly after now")
		})
	}
}

func TestNextRunAt_InvalidClock(t *testing.T) {
	for _, clock := range []string{"25:99", "six thirty", "06:30:00", ""} {
		_, err := nextRunAt(time.Now(), clock, time.UTC)
		assert.Error(t, err, "clock %q", clock)
	}
}
