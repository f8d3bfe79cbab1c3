package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/sensors/bmx055"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

const sampleYAML = `
device:
  id: iu-test
serial:
  port: /dev/ttyS1
  overflow: reject
  frame_size: 64
ntp:
  server: time.example.com
  update_interval: 60000
sensors:
  accel_range: 8g
`

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "iu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, LoadFile(writeFile(t, sampleYAML), conf))
	require.Equal(t, "iu-test", conf.Device.ID)
	require.Equal(t, "/dev/ttyS1", conf.Serial.Port)
	require.Equal(t, uint(115200), conf.Serial.Baud)
	require.Equal(t, "time.example.com", conf.NTP.Server)
	require.Equal(t, ticks.Millis(60000), conf.NTP.UpdateInterval)
	require.Equal(t, 123, conf.NTP.Port)
	require.True(t, conf.NTP.Enabled)
	require.NoError(t, conf.Validate())

	fc := conf.SerialFramer()
	require.Equal(t, 64, fc.Size)
	require.Equal(t, comm.OverflowReject, fc.Overflow)
	require.Equal(t, byte(';'), fc.StopByte)
	rng, err := conf.AccelRange()
	require.NoError(t, err)
	require.Equal(t, bmx055.Range8G, rng)
}

func TestLoadFileErrors(t *testing.T) {
	conf := NewConfig()
	require.Error(t, LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), conf))
	require.Error(t, LoadFile(writeFile(t, "device: [1, 2"), conf))
}

func TestFlagsOverrideFileInOrder(t *testing.T) {
	path := writeFile(t, sampleYAML)
	conf := NewConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	SetupFlagSet(fs, conf)
	require.NoError(t, fs.Parse([]string{"-id", "from-flag", "-config", path, "-mqtt", "mqtt://broker/site/"}))
	require.Equal(t, "iu-test", conf.Device.ID)
	require.Equal(t, "mqtt://broker/site/", conf.MQTT.URL)
	require.Equal(t, "/dev/ttyS1", conf.Serial.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no-id", func(c *Config) { c.Device.ID = "" }},
		{"stop-byte", func(c *Config) { c.Serial.StopByte = ";;" }},
		{"overflow", func(c *Config) { c.Serial.Overflow = "drop" }},
		{"range", func(c *Config) { c.Sensors.AccelRange = "3g" }},
		{"calibration", func(c *Config) { c.Sensors.CalibrationParts = 0 }},
		{"window", func(c *Config) { c.Sensors.WindowSize = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := NewConfig()
			conf.Device.ID = "iu-1"
			require.NoError(t, conf.Validate())
			tc.modify(conf)
			require.Error(t, conf.Validate())
		})
	}
}

func TestBLEFramer(t *testing.T) {
	conf := NewConfig()
	fc := conf.BLEFramer()
	require.True(t, fc.FixedLength)
	require.Equal(t, comm.BLEFrameSize, fc.Size)
	require.Equal(t, comm.BLEReceptionTimeout, fc.ReceptionTimeout)
}
