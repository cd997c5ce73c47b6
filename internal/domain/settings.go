package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UserSettings is the typed view of the per-owner settings blob. The blob is
// stored as opaque JSON; decoding happens in exactly one place
// (DecodeUserSettings) so a corrupt blob degrades to defaults instead of
// failing scattered call sites.
type UserSettings struct {
	AutoJournal AutoJournalSettings `json:"autoJournalGeneration"`
}

// AutoJournalSettings controls end-of-day journal generation.
type AutoJournalSettings struct {
	DailySchedule bool   `json:"dailySchedule"`
	ScheduleTime  string `json:"scheduleTime"` // "HH:MM" wall clock
}

// DefaultUserSettings returns the settings applied when an owner has no blob
// or the stored blob cannot be decoded.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		AutoJournal: AutoJournalSettings{
			DailySchedule: true,
			ScheduleTime:  "23:55",
		},
	}
}

// DecodeUserSettings parses a stored settings blob. Any decode failure, an
// absent autoJournalGeneration section or a malformed schedule time falls
// back to defaults; this is the only place the fallback happens.
func DecodeUserSettings(blob []byte) UserSettings {
	defaults := DefaultUserSettings()
	if len(blob) == 0 {
		return defaults
	}

	// The section pointer distinguishes "key absent" from "explicitly off":
	// only a present section overrides the default-on schedule.
	var decoded struct {
		AutoJournal *AutoJournalSettings `json:"autoJournalGeneration"`
	}
	if err := json.Unmarshal(blob, &decoded); err != nil {
		return defaults
	}
	if decoded.AutoJournal == nil {
		return defaults
	}

	s := UserSettings{AutoJournal: *decoded.AutoJournal}
	if s.AutoJournal.ScheduleTime == "" {
		s.AutoJournal.ScheduleTime = defaults.AutoJournal.ScheduleTime
	}
	if _, _, err := ParseClock(s.AutoJournal.ScheduleTime); err != nil {
		s.AutoJournal.ScheduleTime = defaults.AutoJournal.ScheduleTime
	}
	return s
}

// ParseClock parses an "HH:MM" wall-clock string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrValidation, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrValidation, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrValidation, s)
	}
	return hour, minute, nil
}
