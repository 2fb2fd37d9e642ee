package handsim

import (
	"fmt"
	"io"
	"time"
)

// rateMeter counts frames and reports every interval frames how many
// frames per second went by since the previous report.
type rateMeter struct {
	interval   uint64
	out        io.Writer
	now        func() time.Time
	checkpoint time.Time
	frames     uint64
	last       float64
}

func newRateMeter(interval int, out io.Writer, now func() time.Time) *rateMeter {
	return &rateMeter{
		interval:   uint64(interval),
		out:        out,
		now:        now,
		checkpoint: now(),
	}
}

// tick records one frame and returns true when it produced a report.
func (r *rateMeter) tick() bool {
	r.frames++
	if r.frames%r.interval != 0 {
		return false
	}
	t := r.now()
	elapsed := t.Sub(r.checkpoint).Seconds()
	r.last = float64(r.interval) / elapsed
	r.checkpoint = t
	if r.out != nil {
		fmt.Fprintf(r.out, "FPS: %f\n", r.last)
	}
	return true
}

func (r *rateMeter) rate() float64 {
	return r.last
}
