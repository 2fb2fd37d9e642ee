package handsim

import (
	"context"
	"strings"
	"sync"

	"github.com/jd3nn1s/handsim/handcan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func (c *CANConfig) HandID() (uint32, error) {
	switch strings.ToLower(c.Hand) {
	case "", "right":
		return handcan.HandRight, nil
	case "left":
		return handcan.HandLeft, nil
	}
	return 0, errors.Errorf("unknown hand %q", c.Hand)
}

// canBusRetryable keeps the CAN link to a physical hand open.
type canBusRetryable struct {
	portName string
	handID   uint32

	mu sync.Mutex
	c  CANBus
}

var canBusConnect = func(portName string, handID uint32) (CANBus, error) {
	return handcan.Connect(portName, handID)
}

func (bus *canBusRetryable) Open() error {
	c, err := canBusConnect(bus.portName, bus.handID)
	if err != nil {
		c = nil
	}
	bus.mu.Lock()
	bus.c = c
	bus.mu.Unlock()
	return err
}

func (bus *canBusRetryable) Close() error {
	c := bus.CANBus()
	if c == nil {
		return nil
	}
	return c.Close()
}

func (bus *canBusRetryable) Start(ctx context.Context) error {
	return bus.CANBus().Start(ctx, handcan.Callbacks{
		FingerPose: func(pose handcan.FingerPose) {
			log.WithField("pose", pose).Debug("hand reported finger pose")
		},
	})
}

func (bus *canBusRetryable) Name() string {
	return "canbus"
}

func (bus *canBusRetryable) CANBus() CANBus {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.c
}

// CANForwarder mirrors the grip onto a physical hand. Poses are only sent
// when they change.
type CANForwarder struct {
	canBus *canBusRetryable
	last   handcan.FingerPose
	sent   bool
}

func NewCANForwarder(config CANConfig) (*CANForwarder, error) {
	handID, err := config.HandID()
	if err != nil {
		return nil, err
	}
	return &CANForwarder{
		canBus: &canBusRetryable{
			portName: config.Interface,
			handID:   handID,
		},
	}, nil
}

// Start runs the CAN link until ctx is done, reconnecting on errors.
func (fwd *CANForwarder) Start(ctx context.Context) error {
	return retry(ctx, fwd.canBus)
}

func (fwd *CANForwarder) Forward(newFrame *Frame, prevFrame *Frame) error {
	pose := handcan.GripToPose(newFrame.Sample.Grip)
	if fwd.sent && pose == fwd.last {
		return nil
	}
	canBus := fwd.canBus.CANBus()
	if canBus == nil {
		return errors.New("canbus is not initialized")
	}
	if err := canBus.SendFingerPose(pose); err != nil {
		return errors.Wrapf(err, "unable to send finger pose to CAN bus")
	}
	fwd.last = pose
	fwd.sent = true
	return nil
}
