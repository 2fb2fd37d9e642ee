// Package mjremote is a client for the MuJoCo remote protocol spoken by the
// Unity MJRemote plugin. The device listens on TCP, sends its model sizes on
// accept and then answers int32 commands. Everything on the wire is little
// endian, reals are float32.
package mjremote

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Command int32

const (
	CmdNone Command = iota
	CmdGetInput
	CmdGetImage
	CmdSaveSnapshot
	CmdSaveVideoframe
	CmdSetCamera
	CmdMoveCamera
	CmdSetQpos
	CmdSetMocap
	CmdGetOVRControllerInput
	CmdGetOVRHandInput
	CmdGetOVRControlType
)

const (
	DefaultAddr = "127.0.0.1:1050"

	// HandInputSize is the number of joint values in a hand tracking reading.
	HandInputSize = 10

	dialTimeout = 5 * time.Second
)

var order = binary.LittleEndian

// Info is the handshake the device sends right after accepting.
type Info struct {
	NQpos   int32
	NMocap  int32
	NCamera int32
	Width   int32
	Height  int32
}

// Input is the keyboard and perturbation state of the device window.
type Input struct {
	Key     int32
	Select  int32
	Active  int32
	RefPos  [3]float32
	RefQuat [4]float32
}

type ControllerInput struct {
	Trigger float32
	Pos     [3]float32
	Quat    [4]float32
}

type ControlType int32

const (
	ControlHands ControlType = iota
	ControlTouch
)

func (t ControlType) String() string {
	if t == ControlTouch {
		return "touch"
	}
	return "hands"
}

type Conn struct {
	conn net.Conn
	Info Info
}

// to allow testing
var dial = func(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, dialTimeout)
}

func Connect(addr string) (*Conn, error) {
	conn, err := dial(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", addr)
	}
	c := &Conn{conn: conn}
	if err := binary.Read(conn, order, &c.Info); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "unable to read remote handshake")
	}
	if c.Info.NQpos < 0 || c.Info.NMocap < 0 || c.Info.Width < 0 || c.Info.Height < 0 {
		conn.Close()
		return nil, errors.Errorf("invalid remote handshake %+v", c.Info)
	}
	log.WithField("nqpos", c.Info.NQpos).
		WithField("nmocap", c.Info.NMocap).
		WithField("ncamera", c.Info.NCamera).
		Infof("connected to remote %s", addr)
	return c, nil
}

// Handshake returns the model sizes the device announced on connect.
func (c *Conn) Handshake() Info {
	return c.Info
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) send(cmd Command, payload ...interface{}) error {
	buf := bytes.NewBuffer([]byte{})
	if err := binary.Write(buf, order, cmd); err != nil {
		return errors.Wrapf(err, "unable to write command %d", cmd)
	}
	for _, p := range payload {
		if err := binary.Write(buf, order, p); err != nil {
			return errors.Wrapf(err, "unable to write payload of command %d", cmd)
		}
	}
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		return errors.Wrapf(err, "unable to send command %d", cmd)
	}
	return nil
}

func (c *Conn) receive(cmd Command, data interface{}) error {
	if err := binary.Read(c.conn, order, data); err != nil {
		return errors.Wrapf(err, "unable to read reply to command %d", cmd)
	}
	return nil
}

func (c *Conn) GetInput() (Input, error) {
	in := Input{}
	if err := c.send(CmdGetInput); err != nil {
		return in, err
	}
	return in, c.receive(CmdGetInput, &in)
}

// GetImage returns the RGB pixels of the device's offscreen camera.
func (c *Conn) GetImage() ([]byte, error) {
	if err := c.send(CmdGetImage); err != nil {
		return nil, err
	}
	img := make([]byte, 3*int(c.Info.Width)*int(c.Info.Height))
	if _, err := io.ReadFull(c.conn, img); err != nil {
		return nil, errors.Wrap(err, "unable to read image")
	}
	return img, nil
}

// SaveSnapshot makes the device write a PNG next to its assets.
func (c *Conn) SaveSnapshot() error {
	return c.send(CmdSaveSnapshot)
}

// SaveVideoframe appends a raw frame to the device's video file.
func (c *Conn) SaveVideoframe() error {
	return c.send(CmdSaveVideoframe)
}

// SetCamera selects a model camera, -1 is the free camera. The device
// clamps out of range indices.
func (c *Conn) SetCamera(index int) error {
	return c.send(CmdSetCamera, int32(index))
}

func (c *Conn) MoveCamera(pos [3]float32) error {
	return c.send(CmdMoveCamera, pos)
}

func (c *Conn) SetQpos(qpos []float32) error {
	if len(qpos) != int(c.Info.NQpos) {
		return errors.Errorf("qpos has %d values, remote model has %d", len(qpos), c.Info.NQpos)
	}
	if c.Info.NQpos == 0 {
		return nil
	}
	return c.send(CmdSetQpos, qpos)
}

// SetMocap sends one pose for every mocap body of the remote model.
func (c *Conn) SetMocap(pos [3]float32, quat [4]float32) error {
	n := int(c.Info.NMocap)
	if n == 0 {
		return nil
	}
	positions := make([]float32, 0, 3*n)
	quats := make([]float32, 0, 4*n)
	for i := 0; i < n; i++ {
		positions = append(positions, pos[:]...)
		quats = append(quats, quat[:]...)
	}
	return c.send(CmdSetMocap, positions, quats)
}

func (c *Conn) GetOVRControllerInput() (ControllerInput, error) {
	in := ControllerInput{}
	if err := c.send(CmdGetOVRControllerInput); err != nil {
		return in, err
	}
	return in, c.receive(CmdGetOVRControllerInput, &in)
}

func (c *Conn) GetOVRHandInput() ([HandInputSize]float32, error) {
	in := [HandInputSize]float32{}
	if err := c.send(CmdGetOVRHandInput); err != nil {
		return in, err
	}
	return in, c.receive(CmdGetOVRHandInput, &in)
}

func (c *Conn) GetOVRControlType() (ControlType, error) {
	var t int32
	if err := c.send(CmdGetOVRControlType); err != nil {
		return ControlHands, err
	}
	if err := c.receive(CmdGetOVRControlType, &t); err != nil {
		return ControlHands, err
	}
	return ControlType(t), nil
}
