// Package metrics collects per-procedure call counts and handler
// latency for the NFSv3 dispatch path. A nil Collector is always safe
// to call through: every method on *Collector tolerates a nil receiver,
// so a caller can record without first checking whether metrics are
// enabled.
package metrics

import "time"

// Collector records NFS procedure outcomes. The zero value (a nil
// *Collector) is a valid no-op collector.
type Collector struct {
	requests *counterVec
	duration *histogramVec
}

// RecordRequest records one completed procedure call: its name, the
// nfsstat3 it returned (as a string, e.g. "NFS3_OK" or
// "NFS3ERR_NOENT"), and how long it took. Safe to call on a nil
// *Collector.
func (c *Collector) RecordRequest(procedure, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.requests.inc(procedure, status)
	c.duration.observe(procedure, duration.Seconds())
}
