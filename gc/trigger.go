package gc

// triggerController derives heap_trigger from heap_goal via a PI
// controller over the last 32 cycles' error terms (spec §4.4), tuned to
// Ziegler-Nichols kp=0.405, ki=0.1944 with error measured in KB.
type triggerController struct {
	kp, ki float64
	window [32]float64
	cursor int
	filled int
	sum    float64
}

func newTriggerController() *triggerController {
	return &triggerController{kp: 0.405, ki: 0.1944}
}

// observe records one cycle's error term (atomic_begin_total - heap_goal,
// in KB) and returns the controller's trigger offset for the next cycle.
func (c *triggerController) observe(errorKB float64) float64 {
	old := c.window[c.cursor]
	c.window[c.cursor] = errorKB
	c.sum += errorKB - old
	c.cursor = (c.cursor + 1) % len(c.window)
	if c.filled < len(c.window) {
		c.filled++
	}

	integral := c.sum / float64(c.filled)
	return c.kp*errorKB + c.ki*integral
}

// heapTrigger computes gc_threshold for the next cycle given the current
// heap_goal, clamped into [totalBytes, heapGoal] (spec §4.4).
func (c *triggerController) heapTrigger(totalBytes, heapGoal int64, lastAtomicBegin int64) int64 {
	errKB := float64(lastAtomicBegin-heapGoal) / 1024
	offsetKB := c.observe(errKB)
	trigger := heapGoal + int64(offsetKB*1024)

	if trigger < totalBytes {
		trigger = totalBytes
	}
	if trigger > heapGoal {
		trigger = heapGoal
	}
	return trigger
}

// heapGoal computes heap_goal = total_bytes * goalPercent/100 (spec §4.4,
// default goalPercent = 200).
func heapGoal(totalBytes int64, goalPercent int) int64 {
	if goalPercent <= 0 {
		goalPercent = 200
	}
	return totalBytes * int64(goalPercent) / 100
}
