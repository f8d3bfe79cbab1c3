// Package config holds the runtime configuration of a device.
//
// Values come from defaults, then IU_* environment variables, then command
// line flags in order. A YAML file given by IU_CONFIG or -config is loaded
// at the point it appears, so flags after -config override the file.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/sensors/bmx055"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
	"github.com/mahendrakumarshinde/iu.go/pkg/timesync"
)

// Config is the device configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Serial  SerialConfig  `yaml:"serial"`
	BLE     BLEConfig     `yaml:"ble"`
	GNSS    GNSSConfig    `yaml:"gnss"`
	NTP     NTPConfig     `yaml:"ntp"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Sensors SensorsConfig `yaml:"sensors"`
	Metrics MetricsConfig `yaml:"metrics"`
	Loop    LoopConfig    `yaml:"loop"`
}

// DeviceConfig identifies the device.
type DeviceConfig struct {
	ID string `yaml:"id"`
}

// SerialConfig is the host UART stream.
type SerialConfig struct {
	Port             string       `yaml:"port"`
	Baud             uint         `yaml:"baud"`
	FrameSize        int          `yaml:"frame_size"`
	StopByte         string       `yaml:"stop_byte"`
	ReceptionTimeout ticks.Millis `yaml:"reception_timeout"`
	// Overflow is "wrap" or "reject".
	Overflow string `yaml:"overflow"`
}

// BLEConfig is the BLE stream, reached through a websocket bridge.
type BLEConfig struct {
	URL              string       `yaml:"url"`
	FrameSize        int          `yaml:"frame_size"`
	ReceptionTimeout ticks.Millis `yaml:"reception_timeout"`
}

// GNSSConfig is the GNSS receiver UART.
type GNSSConfig struct {
	Port string `yaml:"port"`
	Baud uint   `yaml:"baud"`
}

// NTPConfig configures the time helper.
type NTPConfig struct {
	Enabled         bool `yaml:"enabled"`
	timesync.Config `yaml:",inline"`
}

// MQTTConfig is the peer messaging.
type MQTTConfig struct {
	// URL like mqtt://host:1883/prefix. Empty disables MQTT.
	URL string `yaml:"url"`
	QoS byte   `yaml:"qos"`
}

// SensorsConfig configures the on-board sensors.
type SensorsConfig struct {
	I2CBus             string       `yaml:"i2c_bus"`
	AccelAddr          uint16       `yaml:"accel_addr"`
	AccelRange         string       `yaml:"accel_range"`
	SampleInterval     ticks.Millis `yaml:"sample_interval"`
	WindowSize         int          `yaml:"window_size"`
	CalibrationParts   int          `yaml:"calibration_parts"`
	CalibrationTimeout ticks.Millis `yaml:"calibration_timeout"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	// Addr like ":9100". Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// LoopConfig configures the scheduling loop.
type LoopConfig struct {
	IntervalMs ticks.Millis `yaml:"interval_ms"`
}

var defaultConfig = Config{
	Serial: SerialConfig{
		Baud:             115200,
		FrameSize:        comm.DefaultFrameSize,
		StopByte:         string(comm.DefaultStopByte),
		ReceptionTimeout: comm.DefaultReceptionTimeout,
		Overflow:         "wrap",
	},
	BLE: BLEConfig{
		FrameSize:        comm.BLEFrameSize,
		ReceptionTimeout: comm.BLEReceptionTimeout,
	},
	GNSS: GNSSConfig{Baud: 9600},
	NTP:  NTPConfig{Enabled: true, Config: timesync.DefaultConfig()},
	MQTT: MQTTConfig{URL: "mqtt://localhost:1883/iu/"},
	Sensors: SensorsConfig{
		I2CBus:             "",
		AccelAddr:          bmx055.DefaultAddr,
		AccelRange:         "2g",
		SampleInterval:     10,
		WindowSize:         128,
		CalibrationParts:   3,
		CalibrationTimeout: 5000,
	},
	Loop: LoopConfig{IntervalMs: 5},
}

func init() {
	defaultConfig.Device.ID = MachineID()
	if val := os.Getenv("IU_DEVICE_ID"); val != "" {
		defaultConfig.Device.ID = val
	}
	if val := os.Getenv("IU_MQTT_URL"); val != "" {
		defaultConfig.MQTT.URL = val
	}
	if val := os.Getenv("IU_SERIAL_PORT"); val != "" {
		defaultConfig.Serial.Port = val
	}
	if val := os.Getenv("IU_METRICS_ADDR"); val != "" {
		defaultConfig.Metrics.Addr = val
	}
	if val := os.Getenv("IU_CONFIG"); val != "" {
		if err := LoadFile(val, &defaultConfig); err != nil {
			glog.Exit(err)
		}
	}
}

// MachineID retrieves an ID identifying the machine, derived from the
// machine id so the raw value isn't published.
func MachineID() string {
	id, err := machineid.ProtectedID("iu")
	if err != nil || len(id) < 12 {
		host, _ := os.Hostname()
		return host
	}
	return id[:12]
}

// LoadFile merges the YAML file at path into conf. Keys absent from the
// file keep their values.
func LoadFile(path string, conf *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type fileFlag struct {
	conf *Config
	path string
}

func (f *fileFlag) String() string {
	return f.path
}

func (f *fileFlag) Set(path string) error {
	f.path = path
	return LoadFile(path, f.conf)
}

// SetupFlags sets command line flags.
func SetupFlags() {
	SetupFlagSet(flag.CommandLine, &defaultConfig)
}

// SetupFlagSet binds flags of fs to conf.
func SetupFlagSet(fs *flag.FlagSet, conf *Config) {
	fs.Var(&fileFlag{conf: conf}, "config", "YAML configuration file")
	fs.StringVar(&conf.Device.ID, "id", conf.Device.ID, "Device ID")
	fs.StringVar(&conf.Serial.Port, "serial", conf.Serial.Port, "Host serial port")
	fs.UintVar(&conf.Serial.Baud, "baud", conf.Serial.Baud, "Host serial baud rate")
	fs.StringVar(&conf.BLE.URL, "ble", conf.BLE.URL, "BLE bridge websocket URL")
	fs.StringVar(&conf.GNSS.Port, "gnss", conf.GNSS.Port, "GNSS serial port")
	fs.BoolVar(&conf.NTP.Enabled, "ntp", conf.NTP.Enabled, "Use NTP when no authoritative time is received")
	fs.StringVar(&conf.NTP.Server, "ntp-server", conf.NTP.Server, "NTP server")
	fs.StringVar(&conf.MQTT.URL, "mqtt", conf.MQTT.URL, "MQTT broker URL")
	fs.StringVar(&conf.Sensors.I2CBus, "i2c", conf.Sensors.I2CBus, "I2C bus of the accelerometer")
	fs.StringVar(&conf.Metrics.Addr, "metrics", conf.Metrics.Addr, "Metrics listen address")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Device.ID == "" {
		return fmt.Errorf("device id must be specified")
	}
	if len(c.Serial.StopByte) != 1 {
		return fmt.Errorf("serial stop_byte must be one byte, got %q", c.Serial.StopByte)
	}
	if _, err := c.overflowPolicy(); err != nil {
		return err
	}
	if _, err := c.AccelRange(); err != nil {
		return err
	}
	if c.Sensors.CalibrationParts <= 0 {
		return fmt.Errorf("calibration_parts must be positive")
	}
	if c.Sensors.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive")
	}
	return nil
}

// MustValidate validates and fails on error.
func (c *Config) MustValidate() *Config {
	if err := c.Validate(); err != nil {
		glog.Exit(err)
	}
	return c
}

func (c *Config) overflowPolicy() (comm.OverflowPolicy, error) {
	switch c.Serial.Overflow {
	case "", "wrap":
		return comm.OverflowWrap, nil
	case "reject":
		return comm.OverflowReject, nil
	}
	return 0, fmt.Errorf("unknown overflow policy %q", c.Serial.Overflow)
}

// SerialFramer returns the framer configuration of the host stream.
func (c *Config) SerialFramer() comm.FramerConfig {
	conf := comm.DefaultFramerConfig()
	conf.Size = c.Serial.FrameSize
	if len(c.Serial.StopByte) == 1 {
		conf.StopByte = c.Serial.StopByte[0]
	}
	conf.ReceptionTimeout = c.Serial.ReceptionTimeout
	conf.Overflow, _ = c.overflowPolicy()
	return conf
}

// BLEFramer returns the framer configuration of the BLE stream.
func (c *Config) BLEFramer() comm.FramerConfig {
	conf := comm.BLEFramerConfig()
	conf.Size = c.BLE.FrameSize
	conf.ReceptionTimeout = c.BLE.ReceptionTimeout
	return conf
}

// AccelRange parses the accelerometer range, e.g. "4g".
func (c *Config) AccelRange() (bmx055.Range, error) {
	switch c.Sensors.AccelRange {
	case "", "2g":
		return bmx055.Range2G, nil
	case "4g":
		return bmx055.Range4G, nil
	case "8g":
		return bmx055.Range8G, nil
	case "16g":
		return bmx055.Range16G, nil
	}
	return 0, fmt.Errorf("unknown accel range %q", c.Sensors.AccelRange)
}

// String renders the configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return strconv.Quote(err.Error())
	}
	return string(data)
}
