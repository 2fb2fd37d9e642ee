package handsim

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())
	assert.Equal(t, DefaultRemoteAddr, config.RemoteAddr)
	assert.Equal(t, 100, config.ReportEvery)
	assert.Equal(t, ModeController, config.Mode)
	assert.Equal(t, DefaultChannelMap(), config.Channels)
}

func TestLoadConfigFromReader(t *testing.T) {
	config, err := LoadConfigFromReader(bytes.NewBufferString(`
Model = "models/mpl.yaml"
RemoteAddr = "10.0.0.2:1050"
Mode = "hand"
ReportEvery = 50
Camera = -1
LogLevel = "debug"

[[Channels.Grip]]
Name = "index_mcp"
Index = 8

[UDP]
Server = "127.0.0.1"
Port = 5000

[CAN]
Interface = "can0"
Hand = "left"
`))
	require.NoError(t, err)
	assert.Equal(t, "models/mpl.yaml", config.Model)
	assert.Equal(t, "10.0.0.2:1050", config.RemoteAddr)
	assert.Equal(t, ModeHand, config.Mode)
	assert.Equal(t, 50, config.ReportEvery)
	require.NotNil(t, config.Camera)
	assert.Equal(t, -1, *config.Camera)
	assert.Equal(t, []Channel{{Name: "index_mcp", Index: 8}}, config.Channels.Grip)
	// kinds missing from the file keep their defaults
	assert.Equal(t, DefaultChannelMap().Fixed, config.Channels.Fixed)
	assert.Equal(t, &UDPConfig{Server: "127.0.0.1", Port: 5000}, config.UDP)
	assert.Equal(t, &CANConfig{Interface: "can0", Hand: "left"}, config.CAN)
}

func TestLoadConfigPartialChannels(t *testing.T) {
	config, err := LoadConfigFromReader(bytes.NewBufferString(`
[[Channels.Fixed]]
Name = "wrist_flex"
Index = 2

[[Channels.Hand]]
Index = 4
`))
	require.NoError(t, err)
	// fields left out are zero, not inherited from the default entry
	assert.Equal(t, []FixedChannel{{Name: "wrist_flex", Index: 2}}, config.Channels.Fixed)
	assert.Equal(t, []Channel{{Index: 4}}, config.Channels.Hand)
	assert.Equal(t, DefaultChannelMap().Grip, config.Channels.Grip)

	// an empty list disables the kind
	config, err = LoadConfigFromReader(bytes.NewBufferString("[Channels]\nFixed = []"))
	require.NoError(t, err)
	assert.Empty(t, config.Channels.Fixed)
	assert.Equal(t, DefaultChannelMap().Hand, config.Channels.Hand)
}

func TestLoadConfigInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"syntax":   `Mode = `,
		"mode":     `Mode = "feet"`,
		"report":   `ReportEvery = 0`,
		"level":    `LogLevel = "loud"`,
		"hand":     "[CAN]\nHand = \"middle\"",
		"noremote": `RemoteAddr = ""`,
	} {
		_, err := LoadConfigFromReader(bytes.NewBufferString(data))
		assert.Error(t, err, name)
	}

	// test mode needs no remote
	_, err := LoadConfigFromReader(bytes.NewBufferString("RemoteAddr = \"\"\nTestMode = true"))
	assert.NoError(t, err)
}

func TestLoadConfig(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	fileName := filepath.Join(t.TempDir(), "handsim.toml")
	require.NoError(t, os.WriteFile(fileName, []byte(`MaxFrames = 10`), 0o644))
	config, err := LoadConfig(fileName)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), config.MaxFrames)
}
