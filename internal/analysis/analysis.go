// Package analysis classifies a breath-alcohol reading and estimates how long
// the subject should wait before the value drops back to the safe level.
package analysis

import (
	"fmt"
	"math"
	"time"
)

const (
	StatusLow    = "low"
	StatusMedium = "medium"
	StatusHigh   = "high"

	mediumThreshold = 20
	highThreshold   = 50
	// Values above safeLevel need waiting; each eliminationPerHour units take an hour.
	safeLevel          = 49
	eliminationPerHour = 10
)

type WaitTime struct {
	Hours     int       `json:"hours"`
	Minutes   int       `json:"minutes"`
	Display   string    `json:"display"`
	WaitUntil time.Time `json:"waitUntil"`
}

type Result struct {
	Value    float64   `json:"value"`
	Status   string    `json:"status"`
	WaitTime *WaitTime `json:"waitTime"`
}

func Analyze(value float64, now time.Time) Result {
	res := Result{Value: value, Status: StatusLow}
	switch {
	case value >= highThreshold:
		res.Status = StatusHigh
	case value >= mediumThreshold:
		res.Status = StatusMedium
	}
	if value <= safeLevel {
		return res
	}

	raw := (value - safeLevel) / eliminationPerHour
	hours := int(math.Floor(raw))
	minutes := int(math.Round((raw - float64(hours)) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}

	display := fmt.Sprintf("%d min", minutes)
	if hours > 0 {
		display = fmt.Sprintf("%d h %s", hours, display)
	}
	res.WaitTime = &WaitTime{
		Hours:     hours,
		Minutes:   minutes,
		Display:   display,
		WaitUntil: now.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute).UTC(),
	}
	return res
}
