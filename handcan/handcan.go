// Package handcan talks to a dexterous robot hand over SocketCAN. Finger
// poses are one byte per finger, 255 fully open and 0 fully closed.
package handcan

import (
	"context"
	"math"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	HandRight uint32 = 0x27
	HandLeft  uint32 = 0x28
)

const (
	cmdFingerPose byte = 0x01

	fingerPoseLength = 7
)

// FingerPose is thumb flex, thumb yaw, index, middle, ring and little
// finger positions.
type FingerPose [6]byte

type FingerPoseFn func(pose FingerPose)

type Callbacks struct {
	// FingerPose receives the pose the hand reports back.
	FingerPose FingerPoseFn
}

type CANBus interface {
	SubscribeFunc(can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
	Publish(can.Frame) error
}

type Connection struct {
	bus    CANBus
	handID uint32
	cb     *Callbacks
}

var newBus = func(portName string) (CANBus, error) {
	return can.NewBusForInterfaceWithName(portName)
}

func Connect(portName string, handID uint32) (*Connection, error) {
	bus, err := newBus(portName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open can interface %s", portName)
	}
	return &Connection{
		bus:    bus,
		handID: handID,
	}, nil
}

// Start subscribes to the bus and blocks until it stops. Cancelling ctx
// disconnects the bus.
func (c *Connection) Start(ctx context.Context, cb Callbacks) error {
	c.cb = &cb
	c.bus.SubscribeFunc(c.handleFrame)
	log.WithField("handID", c.handID).Info("CAN bus opened and subscribed")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			log.Infof("stopping can bus: %v", ctx.Err())
			if err := c.bus.Disconnect(); err != nil {
				log.WithField("err", err).Warn("unable to disconnect canbus after context")
			}
		case <-done:
		}
	}()

	return c.bus.ConnectAndPublish()
}

func (c *Connection) Close() error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	return c.bus.Disconnect()
}

func (c *Connection) SendFingerPose(pose FingerPose) error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	log.WithField("pose", pose).Debug("sending finger pose over canbus")
	frame := can.Frame{
		ID:     c.handID,
		Length: fingerPoseLength,
	}
	frame.Data[0] = cmdFingerPose
	copy(frame.Data[1:], pose[:])
	return c.bus.Publish(frame)
}

func (c *Connection) handleFrame(frame can.Frame) {
	log.WithField("canID", frame.ID).
		WithField("length", frame.Length).
		Debug("received canbus frame")

	if frame.ID != c.handID {
		return
	}
	pose, err := fingerPoseResult(frame)
	if err != nil {
		log.WithField("canID", frame.ID).Debug(err)
		return
	}
	if c.cb == nil || c.cb.FingerPose == nil {
		log.WithField("canID", frame.ID).Debug("no callback registered")
		return
	}
	c.cb.FingerPose(pose)
}

func fingerPoseResult(frame can.Frame) (FingerPose, error) {
	pose := FingerPose{}
	if frame.Length != fingerPoseLength {
		return pose, errors.Errorf("incorrect frame size for finger pose: %v", frame.Length)
	}
	if frame.Data[0] != cmdFingerPose {
		return pose, errors.Errorf("not a finger pose frame: command 0x%02x", frame.Data[0])
	}
	copy(pose[:], frame.Data[1:fingerPoseLength])
	return pose, nil
}

// GripToPose maps a grip value in [0, 1] to the same position on every
// finger. Values outside the range are clamped.
func GripToPose(grip float64) FingerPose {
	if math.IsNaN(grip) {
		grip = 0
	}
	grip = math.Max(0, math.Min(1, grip))
	v := byte(math.Round(255 * (1 - grip)))
	return FingerPose{v, v, v, v, v, v}
}
