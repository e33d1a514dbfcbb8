package orchestrator

import "time"

// armTimers (re)starts the stall and deadline timers for a newly started
// run. Both are stopped by disarmTimers once the run ends (spec
// §5: "two timers run concurrently with every run").
func (o *Orchestrator) armTimers(r *run, deadline time.Duration) {
	r.stallTimer = time.NewTimer(o.cfg.DefaultStall)
	r.deadlineTimer = time.NewTimer(deadline)
}

func (o *Orchestrator) disarmTimers(r *run) {
	if r.stallTimer != nil {
		r.stallTimer.Stop()
	}
	if r.deadlineTimer != nil {
		r.deadlineTimer.Stop()
	}
}
