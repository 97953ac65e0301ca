package jobs

import "time"

func (jr *JobRunner) SetClock(now func() time.Time) {
	jr.now = now
}
