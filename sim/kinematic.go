package sim

import (
	"math"

	"github.com/pkg/errors"
)

type drive struct {
	actuator int
	joint    int
	gear     float64
	// alpha is the fraction of the remaining error closed per step.
	alpha float64
}

// Kinematic steps a Model. It owns its state slices, callers may write to
// the mocap and control slices between steps.
type Kinematic struct {
	model     *Model
	drives    []drive
	mocapPos  []float64
	mocapQuat []float64
	ctrl      []float64
	qpos      []float64
	time      float64
}

func NewKinematic(m *Model) *Kinematic {
	k := &Kinematic{
		model:     m,
		mocapPos:  make([]float64, 3*m.NMocap),
		mocapQuat: make([]float64, 4*m.NMocap),
		ctrl:      make([]float64, m.NU()),
		qpos:      make([]float64, m.NQ()),
	}
	for a, act := range m.Actuators {
		alpha := math.Min(1, act.Kp*m.Timestep)
		for _, t := range act.Joints {
			k.drives = append(k.drives, drive{
				actuator: a,
				joint:    m.JointIndex(t.Joint),
				gear:     t.Gear,
				alpha:    alpha,
			})
		}
	}
	k.Reset()
	return k
}

// Reset puts every joint at zero, or its closest limit, and every mocap body
// at the origin with identity orientation.
func (k *Kinematic) Reset() {
	for i := range k.mocapPos {
		k.mocapPos[i] = 0
	}
	for i := range k.mocapQuat {
		k.mocapQuat[i] = 0
		if i%4 == 0 {
			k.mocapQuat[i] = 1
		}
	}
	for i := range k.ctrl {
		k.ctrl[i] = 0
	}
	for i, j := range k.model.Joints {
		k.qpos[i] = j.Range.clamp(0)
	}
	k.time = 0
}

func (k *Kinematic) Model() *Model        { return k.model }
func (k *Kinematic) MocapPos() []float64  { return k.mocapPos }
func (k *Kinematic) MocapQuat() []float64 { return k.mocapQuat }
func (k *Kinematic) Ctrl() []float64      { return k.ctrl }
func (k *Kinematic) Qpos() []float64      { return k.qpos }

// Time is the simulated time in seconds.
func (k *Kinematic) Time() float64 {
	return k.time
}

func (k *Kinematic) Step() error {
	for i, v := range k.ctrl {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("actuator %s: non-finite control %v", k.model.Actuators[i].Name, v)
		}
	}
	for _, d := range k.drives {
		u := k.model.Actuators[d.actuator].CtrlRange.clamp(k.ctrl[d.actuator])
		q := k.qpos[d.joint]
		q += d.alpha * (u*d.gear - q)
		k.qpos[d.joint] = k.model.Joints[d.joint].Range.clamp(q)
	}
	k.time += k.model.Timestep
	return nil
}
