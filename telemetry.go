package handsim

import "time"

// Pose is a tracked position and an orientation quaternion (w, x, y, z).
type Pose struct {
	Pos  [3]float64
	Quat [4]float64
}

type Sample struct {
	Grip float64
	Pose Pose
}

// Frame is what forwarders see after each iteration of the loop.
type Frame struct {
	Number uint64
	Time   time.Time
	Sample Sample
	// Qpos is a copy of the joint configuration after the step.
	Qpos []float64
	// FPS is the most recently reported rate, zero until the first report.
	FPS float64
}

// Copy returns a deep copy safe to hand to another goroutine.
func (f *Frame) Copy() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Qpos = append([]float64(nil), f.Qpos...)
	return &c
}
