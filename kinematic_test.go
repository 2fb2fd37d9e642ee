package handsim

import (
	"bytes"
	"context"
	"testing"

	"github.com/jd3nn1s/handsim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Simulator = (*sim.Kinematic)(nil)

func TestRunKinematicHand(t *testing.T) {
	model := sim.DefaultModel()
	k := sim.NewKinematic(model)
	remote := NewTestRemote()

	config := DefaultConfig()
	config.TestMode = true
	config.MaxFrames = 500
	hs, err := New(config, k, remote)
	require.NoError(t, err)
	out := &bytes.Buffer{}
	hs.Out = out
	require.NoError(t, hs.Run(context.Background()))

	assert.Equal(t, 5, bytes.Count(out.Bytes(), []byte("FPS: ")))
	assert.Equal(t, uint64(500), hs.Frame().Number)

	// fixed thumb channels have settled
	assert.InDelta(t, 0.89, k.Qpos()[model.JointIndex("thumb_MCP")], 1e-6)
	assert.InDelta(t, 0.37, k.Qpos()[model.JointIndex("thumb_PIP")], 1e-6)

	// the device renders what the simulator holds
	tr := remote.(*testRemote)
	assert.Equal(t, k.Qpos(), tr.lastQpos)
	assert.Equal(t, hs.Frame().Sample.Pose.Pos[:], k.MocapPos())
	assert.Equal(t, hs.Frame().Sample.Pose, tr.lastMocap)
}
