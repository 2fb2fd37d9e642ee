package handsim

import (
	"github.com/jd3nn1s/handsim/mjremote"
	log "github.com/sirupsen/logrus"
)

// MJConn is the part of the mjremote client the loop uses.
type MJConn interface {
	Close() error
	GetOVRControllerInput() (mjremote.ControllerInput, error)
	GetOVRHandInput() ([mjremote.HandInputSize]float32, error)
	SetMocap(pos [3]float32, quat [4]float32) error
	SetQpos(qpos []float32) error
	SetCamera(index int) error
	Handshake() mjremote.Info
}

// mjRemote adapts the float32 wire protocol to the loop's Remote.
type mjRemote struct {
	c    MJConn
	qpos []float32
}

// to allow testing
var remoteConnect = func(addr string) (MJConn, error) {
	return mjremote.Connect(addr)
}

// ConnectRemote connects to the device at addr and selects the configured
// camera.
func ConnectRemote(config Config) (HandRemote, error) {
	c, err := remoteConnect(config.RemoteAddr)
	if err != nil {
		return nil, err
	}
	if config.Camera != nil {
		log.WithField("camera", *config.Camera).Info("selecting remote camera")
		if err := c.SetCamera(*config.Camera); err != nil {
			c.Close()
			return nil, err
		}
	}
	return &mjRemote{c: c}, nil
}

func (r *mjRemote) GetOVRInput() (Sample, error) {
	in, err := r.c.GetOVRControllerInput()
	if err != nil {
		return Sample{}, err
	}
	s := Sample{Grip: float64(in.Trigger)}
	for i, v := range in.Pos {
		s.Pose.Pos[i] = float64(v)
	}
	for i, v := range in.Quat {
		s.Pose.Quat[i] = float64(v)
	}
	return s, nil
}

func (r *mjRemote) GetOVRHandInput() ([]float64, error) {
	in, err := r.c.GetOVRHandInput()
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(in))
	for i, v := range in {
		values[i] = float64(v)
	}
	return values, nil
}

func (r *mjRemote) SetMocap(pose Pose) error {
	pos := [3]float32{}
	quat := [4]float32{}
	for i, v := range pose.Pos {
		pos[i] = float32(v)
	}
	for i, v := range pose.Quat {
		quat[i] = float32(v)
	}
	return r.c.SetMocap(pos, quat)
}

func (r *mjRemote) SetQpos(qpos []float64) error {
	if cap(r.qpos) < len(qpos) {
		r.qpos = make([]float32, len(qpos))
	}
	r.qpos = r.qpos[:len(qpos)]
	for i, v := range qpos {
		r.qpos[i] = float32(v)
	}
	return r.c.SetQpos(r.qpos)
}

// NQpos is the joint count of the model loaded on the device, zero when
// the device has no model.
func (r *mjRemote) NQpos() int {
	return int(r.c.Handshake().NQpos)
}

func (r *mjRemote) Close() error {
	return r.c.Close()
}
