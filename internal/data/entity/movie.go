package entity

import "time"

// Movie is read-only reference data for the scheduler; only the runtime
// matters when placing a screening.
type Movie struct {
	Timestamps
	ID         int64  `db:"id"`
	Title      string `db:"title"`
	Director   string `db:"director"`
	Genre      string `db:"genre"`
	DurationMs int64  `db:"duration_ms"`
}

func (m *Movie) Duration() time.Duration {
	return time.Duration(m.DurationMs) * time.Millisecond
}
