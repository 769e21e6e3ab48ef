// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package schedule implements the broadcast planners: weekly series
// rotation, the second-accurate daily program grid, episode cursors,
// and the timestamp lookup used on the channel-switch hot path.
package schedule

// Time-of-day periods of the broadcast day.
const (
	EarlyMorning = "early_morning" // 04-07
	LateMorning  = "late_morning"  // 07-12
	Afternoon    = "afternoon"     // 12-17
	Evening      = "evening"       // 17-21
	Night        = "night"         // 21-03, wraps midnight
	AnyTime      = "any"
)

// TimeOfDayOrder lists the periods in broadcast order.
var TimeOfDayOrder = []string{EarlyMorning, LateMorning, Afternoon, Evening, Night}

// TimeOfDaySlots gives the fixed number of 30-minute slots per period.
// 6+10+10+8+12 = 46 slots; the 03:00 hour is test pattern outside the grid.
var TimeOfDaySlots = map[string]int{
	EarlyMorning: 6,
	LateMorning:  10,
	Afternoon:    10,
	Evening:      8,
	Night:        12,
}

var periodStartHour = map[string]int{
	EarlyMorning: 4,
	LateMorning:  7,
	Afternoon:    12,
	Evening:      17,
	Night:        21,
}

// ValidTimeOfDay reports whether s is a period name or "any".
func ValidTimeOfDay(s string) bool {
	if s == AnyTime {
		return true
	}
	_, ok := TimeOfDaySlots[s]
	return ok
}

// periodForHour maps an hour of day to its period. Hours 0-2 belong to
// the wrapped night period; hour 3 is the test-pattern hour and maps to
// night only defensively.
func periodForHour(hour int) string {
	switch {
	case hour >= 21 || hour < 4:
		return Night
	case hour < 7:
		return EarlyMorning
	case hour < 12:
		return LateMorning
	case hour < 17:
		return Afternoon
	default:
		return Evening
	}
}

// slotIndexForTime returns the period and the 30-minute slot index within
// that period for a wall-clock time.
func slotIndexForTime(hour, minute int) (string, int) {
	period := periodForHour(hour)
	var hoursIn int
	if period == Night {
		if hour >= 21 {
			hoursIn = hour - 21
		} else {
			hoursIn = hour + 24 - 21
		}
	} else {
		hoursIn = hour - periodStartHour[period]
	}
	idx := hoursIn * 2
	if minute >= 30 {
		idx++
	}
	return period, idx
}
