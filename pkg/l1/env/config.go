// Package env builds the bridge environment from a TOML file, command
// line flags and ROVE_* environment variables.
package env

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l0/serial"
	"github.com/robotalks/rove.go/pkg/l1/comm/tcp"
	"github.com/robotalks/rove.go/pkg/monitor"
)

// Config is the bridge configuration.
type Config struct {
	ID         string              `toml:"id"`
	MQTTURL    string              `toml:"mqtt"`
	Listen     string              `toml:"listen"`
	Echo       bool                `toml:"echo"`
	Monitor    string              `toml:"monitor"`
	Store      string              `toml:"store"`
	FastResync bool                `toml:"fast_resync"`
	Devices    []device.Descriptor `toml:"device"`
	Links      []LinkConfig        `toml:"link"`
	Test       TestConfig          `toml:"test"`
}

// LinkConfig binds a serial port to a device kind.
type LinkConfig struct {
	Name   string      `toml:"name"`
	Port   string      `toml:"port"`
	Baud   int         `toml:"baud"`
	Device device.Kind `toml:"device"`
}

// TestConfig enables the periodic test command.
type TestConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

// Defaults returns a Config with defaults.
func Defaults() *Config {
	return &Config{
		ID:      MachineID(),
		MQTTURL: "mqtt://localhost:1883/rove/",
		Listen:  tcp.DefaultAddr,
		Monitor: monitor.DefaultAddr,
		Store:   "~/.rove/rove.db",
	}
}

// Load reads a TOML config file over defaults.
// If path is empty, only defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.Parse(string(data)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data into c and validates the result.
func (c *Config) Parse(data string) error {
	if _, err := toml.Decode(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return c.Validate()
}

// Validate checks links refer to known devices.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("bridge id required")
	}
	reg, err := c.Registry()
	if err != nil {
		return err
	}
	names := make(map[string]bool)
	for n, l := range c.Links {
		if l.Port == "" {
			return fmt.Errorf("link %d: port required", n)
		}
		if _, err := reg.Lookup(l.Device); err != nil {
			return fmt.Errorf("link %s: %w", l.LinkName(), err)
		}
		if names[l.LinkName()] {
			return fmt.Errorf("link %s: duplicated", l.LinkName())
		}
		names[l.LinkName()] = true
	}
	if _, err := c.TestInterval(); err != nil {
		return err
	}
	return nil
}

// Registry returns the default registry merged with configured devices.
func (c *Config) Registry() (*device.Registry, error) {
	reg := device.DefaultRegistry()
	if err := reg.Merge(c.Devices...); err != nil {
		return nil, err
	}
	return reg, nil
}

// TestInterval parses the test command interval, 0 if not set.
func (c *Config) TestInterval() (time.Duration, error) {
	if c.Test.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Test.Interval)
	if err != nil {
		return 0, fmt.Errorf("test interval: %w", err)
	}
	return d, nil
}

// StorePath returns the store path with ~ expanded.
func (c *Config) StorePath() string {
	return expandHome(c.Store)
}

// LinkName returns the name of the link, defaults to the port name.
func (l LinkConfig) LinkName() string {
	if l.Name != "" {
		return l.Name
	}
	return filepath.Base(l.Port)
}

// Serial returns the serial port config.
func (l LinkConfig) Serial() serial.Config {
	return serial.Config{Port: l.Port, Baud: l.Baud}
}

type overrides struct {
	path, id, mqtt, listen, monitor, store string
}

var flags overrides

func init() {
	flags.path = os.Getenv("ROVE_CONFIG")
	flags.id = os.Getenv("ROVE_ID")
	flags.mqtt = os.Getenv("ROVE_MQTT_URL")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&flags.path, "config", flags.path, "Config file")
	flag.StringVar(&flags.id, "id", flags.id, "Bridge ID")
	flag.StringVar(&flags.mqtt, "mqtt", flags.mqtt, "MQTT broker URL")
	flag.StringVar(&flags.listen, "listen", flags.listen, "Base station listening address")
	flag.StringVar(&flags.monitor, "monitor", flags.monitor, "Monitor listening address")
	flag.StringVar(&flags.store, "store", flags.store, "Telemetry database path")
}

// FromFlags loads the config file and applies flags and environment.
func FromFlags() (*Config, error) {
	cfg, err := Load(flags.path)
	if err != nil {
		return nil, err
	}
	for _, o := range []struct {
		val string
		dst *string
	}{
		{flags.id, &cfg.ID},
		{flags.mqtt, &cfg.MQTTURL},
		{flags.listen, &cfg.Listen},
		{flags.monitor, &cfg.Monitor},
		{flags.store, &cfg.Store},
	} {
		if o.val != "" {
			*o.dst = o.val
		}
	}
	return cfg, cfg.Validate()
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
