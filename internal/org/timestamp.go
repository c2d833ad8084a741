package org

import "time"

// TimeLayout is the layout of the date and time inside an org timestamp.
const TimeLayout = "2006-01-02 Mon 15:04"

// FormatInactive renders t as an inactive timestamp, e.g. "[2024-01-01 Mon 00:00]".
func FormatInactive(t time.Time) string {
	return "[" + t.Format(TimeLayout) + "]"
}
