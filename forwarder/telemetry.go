package forwarder

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/jd3nn1s/handsim"
	"github.com/pkg/errors"
)

type Header struct {
	Type uint8
}

const (
	TypeFrame = 1
)

// MaxDatagramSize is the largest UDP payload over IPv4.
const MaxDatagramSize = 65507

// MaxQpos is the most joint positions a frame datagram can carry.
var MaxQpos = (MaxDatagramSize - binary.Size(Header{}) - binary.Size(FrameRecord{})) / 4

// FrameRecord is the fixed part of a frame datagram. NQpos float32 joint
// positions follow it.
type FrameRecord struct {
	Number uint64
	Grip   float32
	Pos    [3]float32
	Quat   [4]float32
	FPS    float32
	NQpos  uint16
}

func encodeFrame(frame *handsim.Frame) ([]byte, error) {
	if len(frame.Qpos) > MaxQpos {
		return nil, errors.Errorf("qpos of length %d does not fit a datagram, at most %d values", len(frame.Qpos), MaxQpos)
	}
	rec := FrameRecord{
		Number: frame.Number,
		Grip:   float32(frame.Sample.Grip),
		FPS:    float32(frame.FPS),
		NQpos:  uint16(len(frame.Qpos)),
	}
	for i, v := range frame.Sample.Pose.Pos {
		rec.Pos[i] = float32(v)
	}
	for i, v := range frame.Sample.Pose.Quat {
		rec.Quat[i] = float32(v)
	}
	qpos := make([]float32, len(frame.Qpos))
	for i, v := range frame.Qpos {
		qpos[i] = float32(v)
	}

	buf := bytes.NewBuffer([]byte{})
	hdr := Header{
		Type: TypeFrame,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "unable to write udp packet header")
	}
	if err := binary.Write(buf, binary.LittleEndian, &rec); err != nil {
		return nil, errors.Wrap(err, "unable to write frame record")
	}
	if err := binary.Write(buf, binary.LittleEndian, qpos); err != nil {
		return nil, errors.Wrap(err, "unable to write qpos")
	}
	return buf.Bytes(), nil
}

// DecodeFrame reads a datagram written by the UDP forwarder. Time is not
// carried on the wire.
func DecodeFrame(r io.Reader) (*handsim.Frame, error) {
	hdr := Header{}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "unable to read header")
	}
	if hdr.Type != TypeFrame {
		return nil, errors.Errorf("unexpected packet type %d", hdr.Type)
	}
	rec := FrameRecord{}
	if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
		return nil, errors.Wrap(err, "unable to read frame record")
	}
	qpos := make([]float32, rec.NQpos)
	if err := binary.Read(r, binary.LittleEndian, qpos); err != nil {
		return nil, errors.Wrap(err, "unable to read qpos")
	}

	frame := &handsim.Frame{
		Number: rec.Number,
		FPS:    float64(rec.FPS),
		Qpos:   make([]float64, len(qpos)),
	}
	frame.Sample.Grip = float64(rec.Grip)
	for i, v := range rec.Pos {
		frame.Sample.Pose.Pos[i] = float64(v)
	}
	for i, v := range rec.Quat {
		frame.Sample.Pose.Quat[i] = float64(v)
	}
	for i, v := range qpos {
		frame.Qpos[i] = float64(v)
	}
	return frame, nil
}
