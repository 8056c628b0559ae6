package models

import "time"

// Bar represents an immutable OHLCV record at minute resolution.
// Bars are ordered by timestamp with no duplicates per instrument.
type Bar struct {
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// OpeningRangeWindow is a configured opening-range window at a fixed local
// time. The canonical label is the 4-digit local start time, e.g. "0930".
type OpeningRangeWindow struct {
	Label    string        `json:"label"`
	Start    DayTime       `json:"start"`
	Duration time.Duration `json:"duration"`
	Location *time.Location `json:"-"`
}

// DayTime is a wall-clock time of day in the window's local timezone.
type DayTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// At anchors the day time onto a calendar date in the window's timezone.
func (w OpeningRangeWindow) At(date time.Time) time.Time {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), w.Start.Hour, w.Start.Minute, 0, 0, loc)
}

// OpeningRange is the high/low computed over the window's first bars.
type OpeningRange struct {
	High float64
	Low  float64
}

// Size returns the range height in points.
func (r OpeningRange) Size() float64 { return r.High - r.Low }

// Mid returns the range midpoint.
func (r OpeningRange) Mid() float64 { return (r.High + r.Low) / 2 }
