package handsim

import (
	"context"

	"github.com/jd3nn1s/handsim/handcan"
)

// Simulator is the physics side of the loop. The returned slices alias the
// simulator's own state and keep the same length for the life of the model.
type Simulator interface {
	MocapPos() []float64
	MocapQuat() []float64
	Ctrl() []float64
	Qpos() []float64
	Step() error
}

// Remote is the VR input/output device.
type Remote interface {
	GetOVRInput() (Sample, error)
	SetMocap(Pose) error
	SetQpos([]float64) error
	Close() error
}

// HandRemote is implemented by remotes that can report per-joint hand
// tracking values.
type HandRemote interface {
	Remote
	GetOVRHandInput() ([]float64, error)
}

// SizedRemote is implemented by remotes that know how many joint positions
// the device model expects.
type SizedRemote interface {
	NQpos() int
}

type Forwarder interface {
	Forward(newFrame *Frame, prevFrame *Frame) error
}

type CANBus interface {
	Close() error
	Start(context.Context, handcan.Callbacks) error
	SendFingerPose(handcan.FingerPose) error
}
