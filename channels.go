package handsim

import (
	"github.com/pkg/errors"
)

// Channel names one slot of the simulator's control vector.
type Channel struct {
	Name  string
	Index int
}

// FixedChannel is written with the same value every frame.
type FixedChannel struct {
	Name  string
	Index int
	Value float64
}

// ChannelMap describes which control channels the loop writes. Channels not
// listed keep whatever value the simulator last had.
type ChannelMap struct {
	Fixed []FixedChannel
	Grip  []Channel
	// Hand is only used in hand tracking mode, one entry per value returned
	// by the remote, in order.
	Hand []Channel
}

// DefaultChannelMap is the actuator layout of the MPL hand model.
func DefaultChannelMap() ChannelMap {
	return ChannelMap{
		Fixed: []FixedChannel{
			{Name: "thumb_abd", Index: 3, Value: 0.46},
			{Name: "thumb_mcp", Index: 4, Value: 0.89},
			{Name: "thumb_pip", Index: 5, Value: 0.37},
		},
		Grip: []Channel{
			{Name: "index_mcp", Index: 8},
			{Name: "middle_mcp", Index: 9},
			{Name: "ring_mcp", Index: 10},
			{Name: "pinky_mcp", Index: 12},
		},
		Hand: []Channel{
			{Name: "thumb_abd", Index: 3},
			{Name: "thumb_mcp", Index: 4},
			{Name: "thumb_pip", Index: 5},
			{Name: "thumb_dip", Index: 6},
			{Name: "index_abd", Index: 7},
			{Name: "index_mcp", Index: 8},
			{Name: "middle_mcp", Index: 9},
			{Name: "ring_mcp", Index: 10},
			{Name: "pinky_abd", Index: 11},
			{Name: "pinky_mcp", Index: 12},
		},
	}
}

// Validate checks every channel fits a control vector of length nu.
func (m ChannelMap) Validate(nu int) error {
	check := func(kind, name string, idx int) error {
		if idx < 0 || idx >= nu {
			return errors.Errorf("%s channel %q index %d outside control vector of length %d",
				kind, name, idx, nu)
		}
		return nil
	}
	for _, c := range m.Fixed {
		if err := check("fixed", c.Name, c.Index); err != nil {
			return err
		}
	}
	for _, c := range m.Grip {
		if err := check("grip", c.Name, c.Index); err != nil {
			return err
		}
	}
	for _, c := range m.Hand {
		if err := check("hand", c.Name, c.Index); err != nil {
			return err
		}
	}
	return nil
}

func (m ChannelMap) applyFixed(ctrl []float64) {
	for _, c := range m.Fixed {
		ctrl[c.Index] = c.Value
	}
}

func (m ChannelMap) applyGrip(ctrl []float64, grip float64) {
	for _, c := range m.Grip {
		ctrl[c.Index] = grip
	}
}

func (m ChannelMap) applyHand(ctrl []float64, values []float64) error {
	if len(values) < len(m.Hand) {
		return errors.Errorf("hand input has %d values, channel map needs %d",
			len(values), len(m.Hand))
	}
	for i, c := range m.Hand {
		ctrl[c.Index] = values[i]
	}
	return nil
}
