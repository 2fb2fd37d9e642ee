package handsim

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// ModeController drives the grip channels from the controller trigger.
	ModeController = "controller"
	// ModeHand additionally drives the hand channels from hand tracking.
	// Hand values are written last, so they replace the fixed and grip
	// values on any channel both maps name (3..12 with the default map).
	ModeHand = "hand"

	DefaultRemoteAddr  = "127.0.0.1:1050"
	DefaultReportEvery = 100
)

type UDPConfig struct {
	Server string
	Port   int
}

type CANConfig struct {
	Interface string
	// Hand is "left" or "right".
	Hand string
}

type Config struct {
	// Model is the path of the simulator model. Empty selects the built in
	// MPL hand.
	Model      string
	RemoteAddr string
	Mode       string
	// ReportEvery is the number of frames between FPS reports.
	ReportEvery int
	// MaxFrames stops the loop after that many frames, zero runs forever.
	MaxFrames uint64
	// Camera selects the device camera at startup, -1 being the free camera.
	Camera     *int
	TestMode   bool
	LogLevel   string
	StatusAddr string

	Channels ChannelMap
	UDP      *UDPConfig
	CAN      *CANConfig
}

func DefaultConfig() Config {
	return Config{
		RemoteAddr:  DefaultRemoteAddr,
		Mode:        ModeController,
		ReportEvery: DefaultReportEvery,
		LogLevel:    log.InfoLevel.String(),
		Channels:    DefaultChannelMap(),
	}
}

func LoadConfig(fileName string) (Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader decodes TOML over DefaultConfig. Channel lists present
// in the file replace the default list of the same kind, entries start from
// zero values.
func LoadConfigFromReader(configReader io.Reader) (Config, error) {
	config := DefaultConfig()
	config.Channels = ChannelMap{}
	md, err := toml.NewDecoder(configReader).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to decode configuration")
	}
	defaults := DefaultChannelMap()
	if !md.IsDefined("Channels", "Fixed") {
		config.Channels.Fixed = defaults.Fixed
	}
	if !md.IsDefined("Channels", "Grip") {
		config.Channels.Grip = defaults.Grip
	}
	if !md.IsDefined("Channels", "Hand") {
		config.Channels.Hand = defaults.Hand
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeController, ModeHand:
	default:
		return errors.Errorf("unknown mode %q", c.Mode)
	}
	if c.ReportEvery <= 0 {
		return errors.Errorf("report interval must be positive, got %d", c.ReportEvery)
	}
	if c.RemoteAddr == "" && !c.TestMode {
		return errors.New("remote address is required")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if c.CAN != nil {
		if _, err := c.CAN.HandID(); err != nil {
			return err
		}
	}
	return nil
}
