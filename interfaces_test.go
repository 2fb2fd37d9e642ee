package handsim

import (
	"context"

	"github.com/jd3nn1s/handsim/handcan"
	"github.com/jd3nn1s/handsim/mjremote"
)

// simStub records the control vector and mocap state it saw at each step.
// Every step adds the step count to each qpos entry so pre and post step
// values differ.
type simStub struct {
	mocapPos  []float64
	mocapQuat []float64
	ctrl      []float64
	qpos      []float64
	steps     int
	stepErr   error
	onStep    func()
}

func newSimStub(nu, nq, nmocap int) *simStub {
	return &simStub{
		mocapPos:  make([]float64, 3*nmocap),
		mocapQuat: make([]float64, 4*nmocap),
		ctrl:      make([]float64, nu),
		qpos:      make([]float64, nq),
	}
}

func (s *simStub) MocapPos() []float64  { return s.mocapPos }
func (s *simStub) MocapQuat() []float64 { return s.mocapQuat }
func (s *simStub) Ctrl() []float64      { return s.ctrl }
func (s *simStub) Qpos() []float64      { return s.qpos }

func (s *simStub) Step() error {
	if s.stepErr != nil {
		return s.stepErr
	}
	s.steps++
	for i := range s.qpos {
		s.qpos[i] += float64(s.steps)
	}
	if s.onStep != nil {
		s.onStep()
	}
	return nil
}

type remoteCall struct {
	name string
	pose Pose
	qpos []float64
}

// remoteStub replays samples and records every call in order.
type remoteStub struct {
	samples  []Sample
	hand     []float64
	calls    []remoteCall
	inputErr error
	qposErr  error
	closed   bool
	onInput  func(n int)
}

func (r *remoteStub) GetOVRInput() (Sample, error) {
	if r.inputErr != nil {
		return Sample{}, r.inputErr
	}
	n := r.count("input")
	r.calls = append(r.calls, remoteCall{name: "input"})
	if r.onInput != nil {
		r.onInput(n + 1)
	}
	if len(r.samples) == 0 {
		return Sample{}, nil
	}
	return r.samples[n%len(r.samples)], nil
}

func (r *remoteStub) GetOVRHandInput() ([]float64, error) {
	r.calls = append(r.calls, remoteCall{name: "hand"})
	return r.hand, nil
}

func (r *remoteStub) SetMocap(pose Pose) error {
	r.calls = append(r.calls, remoteCall{name: "mocap", pose: pose})
	return nil
}

func (r *remoteStub) SetQpos(qpos []float64) error {
	if r.qposErr != nil {
		return r.qposErr
	}
	r.calls = append(r.calls, remoteCall{name: "qpos", qpos: append([]float64(nil), qpos...)})
	return nil
}

func (r *remoteStub) Close() error {
	r.closed = true
	return nil
}

func (r *remoteStub) count(name string) int {
	n := 0
	for _, c := range r.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func (r *remoteStub) named(name string) []remoteCall {
	var ret []remoteCall
	for _, c := range r.calls {
		if c.name == name {
			ret = append(ret, c)
		}
	}
	return ret
}

// plainRemote hides the hand tracking methods of remoteStub.
type plainRemote struct {
	Remote
}

// mjConnStub is the wire client seen by mjRemote.
type mjConnStub struct {
	controller mjremote.ControllerInput
	hand       [mjremote.HandInputSize]float32
	mocapPos   [3]float32
	mocapQuat  [4]float32
	qpos       []float32
	camera     *int
	info       mjremote.Info
	closed     bool
}

func (m *mjConnStub) Handshake() mjremote.Info {
	return m.info
}

func (m *mjConnStub) Close() error {
	m.closed = true
	return nil
}

func (m *mjConnStub) GetOVRControllerInput() (mjremote.ControllerInput, error) {
	return m.controller, nil
}

func (m *mjConnStub) GetOVRHandInput() ([mjremote.HandInputSize]float32, error) {
	return m.hand, nil
}

func (m *mjConnStub) SetMocap(pos [3]float32, quat [4]float32) error {
	m.mocapPos = pos
	m.mocapQuat = quat
	return nil
}

func (m *mjConnStub) SetQpos(qpos []float32) error {
	m.qpos = append([]float32(nil), qpos...)
	return nil
}

func (m *mjConnStub) SetCamera(index int) error {
	m.camera = &index
	return nil
}

// canBusStub blocks in Start until ctx is done, or fails straight away when
// startErr is set.
type canBusStub struct {
	startChan chan struct{}
	startErr  error
	closed    bool
	poses     []handcan.FingerPose
	callbacks handcan.Callbacks
}

func (c *canBusStub) Close() error {
	c.closed = true
	return nil
}

func (c *canBusStub) Start(ctx context.Context, callbacks handcan.Callbacks) error {
	c.callbacks = callbacks
	if c.startErr != nil {
		return c.startErr
	}
	select {
	case c.startChan <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *canBusStub) SendFingerPose(pose handcan.FingerPose) error {
	c.poses = append(c.poses, pose)
	return nil
}

type forwarderStub struct {
	frames []*Frame
	prev   []*Frame
	err    error
}

func (fwd *forwarderStub) Forward(newFrame *Frame, prevFrame *Frame) error {
	fwd.frames = append(fwd.frames, newFrame)
	fwd.prev = append(fwd.prev, prevFrame)
	return fwd.err
}
