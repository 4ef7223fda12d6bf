package logtrack

import "time"

// RateMonitor is a naive rate monitor that counts the lines delivered
// during the current second.
type RateMonitor struct {
	second int64
	num    int64
}

// Tick records one line at now and returns the count for that second.
func (r *RateMonitor) Tick(now time.Time) int64 {
	sec := now.Unix()
	if r.second != sec {
		r.second = sec
		r.num = 1
	} else {
		r.num++
	}
	return r.num
}
