package handsim

import (
	"context"
	"sync"
	"testing"

	"github.com/jd3nn1s/handsim/handcan"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCANConfigHandID(t *testing.T) {
	for hand, expected := range map[string]uint32{
		"":      handcan.HandRight,
		"right": handcan.HandRight,
		"Left":  handcan.HandLeft,
	} {
		id, err := (&CANConfig{Hand: hand}).HandID()
		assert.NoError(t, err)
		assert.Equal(t, expected, id, hand)
	}
	_, err := (&CANConfig{Hand: "both"}).HandID()
	assert.Error(t, err)
}

func TestRunCANBus(t *testing.T) {
	origCanBusConnect := canBusConnect
	defer func() {
		canBusConnect = origCanBusConnect
	}()

	stub := &canBusStub{startChan: make(chan struct{})}
	var gotPort string
	var gotHand uint32
	canBusConnect = func(p string, handID uint32) (CANBus, error) {
		gotPort = p
		gotHand = handID
		return stub, nil
	}

	fwd, err := NewCANForwarder(CANConfig{Interface: "can1", Hand: "left"})
	require.NoError(t, err)

	// close before opening
	assert.NoError(t, fwd.canBus.Close())

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		_ = fwd.Start(ctx)
		wg.Done()
	}()
	<-stub.startChan
	assert.Equal(t, "can1", gotPort)
	assert.Equal(t, handcan.HandLeft, gotHand)
	assert.NotNil(t, stub.callbacks.FingerPose)

	assert.NoError(t, fwd.Forward(&Frame{Sample: Sample{Grip: 1}}, &Frame{}))
	assert.Equal(t, []handcan.FingerPose{handcan.GripToPose(1)}, stub.poses)

	cancel()
	wg.Wait()
}

func TestCANBusReconnect(t *testing.T) {
	defer noDelays()()
	origCanBusConnect := canBusConnect
	defer func() {
		canBusConnect = origCanBusConnect
	}()

	// the first link drops as soon as it starts, the second one stays up
	buses := []*canBusStub{
		{startErr: errors.New("bus-off")},
		{startChan: make(chan struct{})},
	}
	var connects int
	canBusConnect = func(string, uint32) (CANBus, error) {
		bus := buses[connects]
		connects++
		return bus, nil
	}

	fwd, err := NewCANForwarder(CANConfig{Interface: "can0"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- fwd.Start(ctx)
	}()
	<-buses[1].startChan
	assert.Equal(t, 2, connects)
	assert.True(t, buses[0].closed)
	assert.False(t, buses[1].closed)

	// frames go to the link that replaced the failed one
	assert.NoError(t, fwd.Forward(&Frame{Sample: Sample{Grip: 0.5}}, &Frame{}))
	assert.Empty(t, buses[0].poses)
	assert.Equal(t, []handcan.FingerPose{handcan.GripToPose(0.5)}, buses[1].poses)

	cancel()
	assert.Equal(t, context.Canceled, <-done)
}

func TestCANBusOpenFailure(t *testing.T) {
	origCanBusConnect := canBusConnect
	defer func() {
		canBusConnect = origCanBusConnect
	}()
	canBusConnect = func(string, uint32) (CANBus, error) {
		return (*handcan.Connection)(nil), errors.New("no such interface")
	}

	bus := &canBusRetryable{portName: "can9"}
	assert.Error(t, bus.Open())
	assert.Nil(t, bus.CANBus())
	assert.NoError(t, bus.Close())
}

func TestCANForwarder(t *testing.T) {
	stub := &canBusStub{}
	fwd := &CANForwarder{
		canBus: &canBusRetryable{
			c: stub,
		},
	}

	prev := &Frame{}
	frame := &Frame{Sample: Sample{Grip: 0}}
	assert.NoError(t, fwd.Forward(frame, prev))
	assert.Equal(t, []handcan.FingerPose{handcan.GripToPose(0)}, stub.poses)

	// unchanged pose is not sent again
	assert.NoError(t, fwd.Forward(&Frame{Sample: Sample{Grip: 0.0001}}, frame))
	assert.Len(t, stub.poses, 1)

	assert.NoError(t, fwd.Forward(&Frame{Sample: Sample{Grip: 0.5}}, frame))
	assert.Len(t, stub.poses, 2)
	assert.Equal(t, handcan.GripToPose(0.5), stub.poses[1])

	fwd = &CANForwarder{canBus: &canBusRetryable{}}
	assert.Error(t, fwd.Forward(frame, prev))
}
