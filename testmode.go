package handsim

import (
	"math"
)

const (
	testGripStep  = 0.01
	testRadius    = 0.1
	testHeight    = 1.0
	testAngleStep = 2 * math.Pi / 500
)

// testRemote stands in for the VR device. The grip ramps between open and
// closed while the hand circles at a fixed height.
type testRemote struct {
	grip  float64
	down  bool
	angle float64

	lastMocap Pose
	lastQpos  []float64
}

func NewTestRemote() HandRemote {
	return &testRemote{}
}

func (r *testRemote) GetOVRInput() (Sample, error) {
	s := Sample{
		Grip: r.grip,
		Pose: Pose{
			Pos:  [3]float64{testRadius * math.Sin(r.angle), testRadius * math.Cos(r.angle), testHeight},
			Quat: [4]float64{1, 0, 0, 0},
		},
	}

	if r.down {
		r.grip -= testGripStep
	} else {
		r.grip += testGripStep
	}
	if r.grip >= 1 {
		r.grip = 1
		r.down = true
	} else if r.grip <= 0 {
		r.grip = 0
		r.down = false
	}
	r.angle = math.Mod(r.angle+testAngleStep, 2*math.Pi)
	return s, nil
}

// GetOVRHandInput curls every joint by the current grip.
func (r *testRemote) GetOVRHandInput() ([]float64, error) {
	values := make([]float64, 10)
	for i := range values {
		values[i] = r.grip
	}
	return values, nil
}

func (r *testRemote) SetMocap(pose Pose) error {
	r.lastMocap = pose
	return nil
}

func (r *testRemote) SetQpos(qpos []float64) error {
	r.lastQpos = append(r.lastQpos[:0], qpos...)
	return nil
}

func (r *testRemote) Close() error {
	return nil
}
