package handsim

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Handsim relays one hand between a Remote and a Simulator, one frame at a
// time.
type Handsim struct {
	config     Config
	sim        Simulator
	remote     Remote
	hand       HandRemote
	forwarders []Forwarder

	// Out receives the FPS reports.
	Out   io.Writer
	now   func() time.Time
	meter *rateMeter
	frame *Frame
}

func New(config Config, sim Simulator, remote Remote) (*Handsim, error) {
	if sim == nil || remote == nil {
		return nil, errors.New("simulator and remote are required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := config.Channels.Validate(len(sim.Ctrl())); err != nil {
		return nil, err
	}
	if len(sim.MocapPos()) < 3 || len(sim.MocapQuat()) < 4 {
		return nil, errors.New("model has no mocap body")
	}
	if sized, ok := remote.(SizedRemote); ok {
		if n := sized.NQpos(); n != 0 && n != len(sim.Qpos()) {
			return nil, errors.Errorf("remote model has %d joint positions, simulator has %d", n, len(sim.Qpos()))
		}
	}
	hs := &Handsim{
		config: config,
		sim:    sim,
		remote: remote,
		Out:    os.Stdout,
		now:    time.Now,
	}
	if config.Mode == ModeHand {
		hand, ok := remote.(HandRemote)
		if !ok {
			return nil, errors.New("remote does not support hand tracking")
		}
		hs.hand = hand
	}
	return hs, nil
}

func (hs *Handsim) AddForwarder(fwd Forwarder) {
	hs.forwarders = append(hs.forwarders, fwd)
}

// Frame returns the most recent frame, nil before the first one.
func (hs *Handsim) Frame() *Frame {
	return hs.frame
}

// Run loops until ctx is done, MaxFrames frames have run or a device or
// simulator call fails. Failures are returned as is, nothing is retried.
func (hs *Handsim) Run(ctx context.Context) error {
	hs.meter = newRateMeter(hs.config.ReportEvery, hs.Out, hs.now)
	log.WithField("mode", hs.config.Mode).Info("frame loop started")
	for n := uint64(0); hs.config.MaxFrames == 0 || n < hs.config.MaxFrames; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := hs.step(n + 1); err != nil {
			return errors.Wrapf(err, "frame %d", n+1)
		}
	}
	return nil
}

func (hs *Handsim) step(number uint64) error {
	sample, err := hs.remote.GetOVRInput()
	if err != nil {
		return errors.Wrap(err, "unable to read remote input")
	}

	setMocap(hs.sim.MocapPos(), sample.Pose.Pos[:])
	setMocap(hs.sim.MocapQuat(), sample.Pose.Quat[:])
	if err := hs.remote.SetMocap(sample.Pose); err != nil {
		return errors.Wrap(err, "unable to send mocap to remote")
	}

	ctrl := hs.sim.Ctrl()
	hs.config.Channels.applyFixed(ctrl)
	hs.config.Channels.applyGrip(ctrl, sample.Grip)
	if hs.hand != nil {
		values, err := hs.hand.GetOVRHandInput()
		if err != nil {
			return errors.Wrap(err, "unable to read hand input")
		}
		if err := hs.config.Channels.applyHand(ctrl, values); err != nil {
			return err
		}
	}

	if err := hs.sim.Step(); err != nil {
		return errors.Wrap(err, "simulator step failed")
	}

	qpos := hs.sim.Qpos()
	if err := hs.remote.SetQpos(qpos); err != nil {
		return errors.Wrap(err, "unable to send qpos to remote")
	}

	if hs.meter.tick() {
		log.WithField("fps", hs.meter.rate()).Debug("frame rate")
	}

	hs.forward(&Frame{
		Number: number,
		Time:   hs.now(),
		Sample: sample,
		Qpos:   append([]float64(nil), qpos...),
		FPS:    hs.meter.rate(),
	})
	return nil
}

func (hs *Handsim) forward(frame *Frame) {
	prev := hs.frame
	hs.frame = frame
	if prev == nil {
		prev = &Frame{}
	}
	for _, fwd := range hs.forwarders {
		if err := fwd.Forward(frame, prev); err != nil {
			log.WithField("err", err).Warn("unable to forward frame")
		}
	}
}

// setMocap writes v into every body of a flattened mocap array.
func setMocap(dst []float64, v []float64) {
	for i := 0; i+len(v) <= len(dst); i += len(v) {
		copy(dst[i:], v)
	}
}
