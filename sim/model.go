// Package sim is a kinematic stand-in for a physics engine. Each actuator
// drives its joints towards ctrl*gear with first order tracking, which is
// enough to render a hand following its controls without contacts.
package sim

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimestep = 0.002
	DefaultKp       = 50.0
)

//go:embed mpl.yaml
var mplYAML []byte

// Range is a closed interval. The zero Range means unlimited.
type Range [2]float64

func (r Range) limited() bool {
	return r[0] < r[1]
}

func (r Range) clamp(v float64) float64 {
	if !r.limited() {
		return v
	}
	if v < r[0] {
		return r[0]
	}
	if v > r[1] {
		return r[1]
	}
	return v
}

type Joint struct {
	Name  string `yaml:"name"`
	Range Range  `yaml:"range"`
}

type Transmission struct {
	Joint string `yaml:"joint"`
	// Gear defaults to 1.
	Gear float64 `yaml:"gear"`
}

type Actuator struct {
	Name      string         `yaml:"name"`
	CtrlRange Range          `yaml:"ctrlrange"`
	Kp        float64        `yaml:"kp"`
	Joints    []Transmission `yaml:"joints"`
}

type Model struct {
	Name      string     `yaml:"name"`
	Timestep  float64    `yaml:"timestep"`
	NMocap    int        `yaml:"nmocap"`
	Joints    []Joint    `yaml:"joints"`
	Actuators []Actuator `yaml:"actuators"`
}

func Load(fileName string) (*Model, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open model %s", fileName)
	}
	defer file.Close()
	m, err := LoadReader(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load model %s", fileName)
	}
	return m, nil
}

func LoadReader(r io.Reader) (*Model, error) {
	m := &Model{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, errors.Wrap(err, "unable to decode model")
	}
	if err := m.normalize(); err != nil {
		return nil, err
	}
	return m, nil
}

// DefaultModel is the MPL hand.
func DefaultModel() *Model {
	m, err := LoadReader(bytes.NewReader(mplYAML))
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) NQ() int {
	return len(m.Joints)
}

func (m *Model) NU() int {
	return len(m.Actuators)
}

// JointIndex returns the qpos index of the named joint, -1 if unknown.
func (m *Model) JointIndex(name string) int {
	for i, j := range m.Joints {
		if j.Name == name {
			return i
		}
	}
	return -1
}

// ActuatorIndex returns the control index of the named actuator, -1 if
// unknown.
func (m *Model) ActuatorIndex(name string) int {
	for i, a := range m.Actuators {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func (m *Model) normalize() error {
	if m.Timestep == 0 {
		m.Timestep = DefaultTimestep
	}
	if m.Timestep < 0 {
		return errors.Errorf("negative timestep %v", m.Timestep)
	}
	if m.NMocap < 0 {
		return errors.Errorf("negative mocap body count %d", m.NMocap)
	}
	seen := map[string]bool{}
	for _, j := range m.Joints {
		if j.Name == "" {
			return errors.New("joint without a name")
		}
		if seen[j.Name] {
			return errors.Errorf("duplicate joint %s", j.Name)
		}
		seen[j.Name] = true
	}
	driven := map[string]string{}
	for i := range m.Actuators {
		a := &m.Actuators[i]
		if a.Kp == 0 {
			a.Kp = DefaultKp
		}
		if a.Kp < 0 {
			return errors.Errorf("actuator %s: negative kp", a.Name)
		}
		for k := range a.Joints {
			t := &a.Joints[k]
			if !seen[t.Joint] {
				return errors.Errorf("actuator %s: unknown joint %s", a.Name, t.Joint)
			}
			if other, ok := driven[t.Joint]; ok {
				return errors.Errorf("joint %s driven by both %s and %s", t.Joint, other, a.Name)
			}
			driven[t.Joint] = a.Name
			if t.Gear == 0 {
				t.Gear = 1
			}
		}
	}
	return nil
}
