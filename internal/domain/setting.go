package domain

import "time"

// Setting is one process-wide configuration row. Values are strings; the
// caller parses. Unknown keys are tolerated but mean nothing to the app.
type Setting struct {
	Key         string    `json:"key" db:"key"`
	Value       string    `json:"value" db:"value"`
	Description string    `json:"description" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Known setting keys. The persisted row is authoritative; the compiled
// default applies only when the key is absent.
const (
	SettingDailyEmailLimit    = "daily_email_limit"
	SettingDuplicateCheckDays = "duplicate_check_days"
	SettingWorkHoursStart     = "work_hours_start"
	SettingWorkHoursEnd       = "work_hours_end"
	SettingDelayMean          = "delay_mean"
	SettingDelayStd           = "delay_std"
	SettingMaxAttemptsPerLead = "max_attempts_per_lead"
)

// DefaultSettings maps each known key to its fallback value.
var DefaultSettings = map[string]string{
	SettingDailyEmailLimit:    "20",
	SettingDuplicateCheckDays: "180",
	SettingWorkHoursStart:     "9",
	SettingWorkHoursEnd:       "18",
	SettingDelayMean:          "90",
	SettingDelayStd:           "30",
	SettingMaxAttemptsPerLead: "2",
}
