package forwarder

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jd3nn1s/handsim"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const writeBufSize = MaxDatagramSize * 2

var sendInterval = 100 * time.Millisecond

type UDPForwarder struct {
	Config handsim.UDPConfig

	conn    net.Conn
	fwdChan chan *handsim.Frame
}

func NewUDPForwarder(config handsim.UDPConfig) (*UDPForwarder, error) {
	udp := &UDPForwarder{
		Config:  config,
		fwdChan: make(chan *handsim.Frame, 1),
	}
	if err := udp.connect(); err != nil {
		return nil, err
	}
	return udp, nil
}

func NewUDPForwarderFromReader(configReader io.Reader) (*UDPForwarder, error) {
	config := handsim.UDPConfig{}
	if _, err := toml.NewDecoder(configReader).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "unable to load udp forwarder configuration")
	}
	return NewUDPForwarder(config)
}

func (udp *UDPForwarder) Close() error {
	return udp.conn.Close()
}

func (udp *UDPForwarder) Forward(newFrame *handsim.Frame, prevFrame *handsim.Frame) error {
	select {
	// copy the frame as it is sent from another go-routine
	case udp.fwdChan <- newFrame.Copy():
	default:
		// if channel is full, skip
	}
	return nil
}

// Start sends at most one frame per interval until ctx is done.
func (udp *UDPForwarder) Start(ctx context.Context) error {
	limiter := time.NewTicker(sendInterval)
	defer limiter.Stop()
	for {
		select {
		case <-limiter.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case f := <-udp.fwdChan:
			if err := udp.forward(f); err != nil {
				log.WithField("frame", f.Number).Error("unable to forward frame to server: ", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (udp *UDPForwarder) forward(frame *handsim.Frame) error {
	data, err := encodeFrame(frame)
	if err != nil {
		return err
	}
	_, err = udp.conn.Write(data)
	return err
}

func (udp *UDPForwarder) connect() error {
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d",
		udp.Config.Server,
		udp.Config.Port))
	if err != nil {
		return errors.Wrap(err, "unable to dial udp server")
	}
	udpConn := conn.(*net.UDPConn)
	if err = udpConn.SetWriteBuffer(writeBufSize); err != nil {
		conn.Close()
		return errors.Wrapf(err, "unable to set OS write buffer to %v", writeBufSize)
	}

	udp.conn = conn
	return nil
}
