package progress

import "time"

// Rate describes throughput and completion derived from a Snapshot.
type Rate struct {
	// Percent is in [0, 100]; negative when the total is unknown.
	Percent float64
	// PerSecond is the mean completion rate since start.
	PerSecond float64
	// ETA is the projected time remaining; zero when it cannot be estimated.
	ETA time.Duration
}

// Estimate computes completion, rate, and remaining time for done of total
// items after elapsed.
func Estimate(done, total int64, elapsed time.Duration) Rate {
	r := Rate{Percent: -1}
	if total > 0 {
		r.Percent = float64(done) / float64(total) * 100
		if r.Percent > 100 {
			r.Percent = 100
		}
	}
	if elapsed <= 0 || done <= 0 {
		return r
	}
	r.PerSecond = float64(done) / elapsed.Seconds()
	if total > done {
		remaining := float64(total-done) / r.PerSecond
		r.ETA = time.Duration(remaining * float64(time.Second)).Round(time.Second)
	}
	return r
}
