// Package editwindow computes the range of dates a member may self-edit:
// today and the two preceding calendar days, in the server's local time.
package editwindow

import "time"

// LookbackDays is how many days before today remain editable.
const LookbackDays = 2

// Range is an inclusive pair of YYYY-MM-DD dates.
type Range struct {
	MinDate string `json:"minDate"`
	MaxDate string `json:"maxDate"`
}

// AllowedRange returns the editable range for the local calendar day containing now.
func AllowedRange(now time.Time) Range {
	local := now.Local()
	return Range{
		MinDate: local.AddDate(0, 0, -LookbackDays).Format(time.DateOnly),
		MaxDate: local.Format(time.DateOnly),
	}
}

// Contains reports whether date (YYYY-MM-DD) falls within r.
func (r Range) Contains(date string) bool {
	return date >= r.MinDate && date <= r.MaxDate
}

// IsEditable reports whether date may be self-edited at now.
func IsEditable(now time.Time, date string) bool {
	return AllowedRange(now).Contains(date)
}
