package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/charles-d-burton/sx127x"
)

// Config is the on-disk configuration of the command.
type Config struct {
	Radio RadioConfig `yaml:"radio"`
	Log   LogConfig   `yaml:"log"`
	Send  SendConfig  `yaml:"send"`
}

// RadioConfig mirrors sx127x.Options with unit strings for frequencies.
type RadioConfig struct {
	SPIBus          int    `yaml:"spi_bus"`
	SPIDevice       int    `yaml:"spi_device"`
	Transport       string `yaml:"transport"`
	GPIO            string `yaml:"gpio"`
	GPIOChip        string `yaml:"gpio_chip"`
	ResetPin        int    `yaml:"reset_pin"`
	InterruptPin    int    `yaml:"interrupt_pin"`
	Frequency       string `yaml:"frequency"`        // e.g. "433MHz"
	SpreadingFactor uint8  `yaml:"spreading_factor"` // 6..12
	SignalBandwidth string `yaml:"signal_bandwidth"` // e.g. "125kHz"
	CodingRate      uint8  `yaml:"coding_rate"`      // denominator of 4/x
	PreambleLength  uint16 `yaml:"preamble_length"`
	SyncWord        byte   `yaml:"sync_word"`
	TxPower         uint8  `yaml:"tx_power"`
	CRC             bool   `yaml:"crc"`
	ImplicitHeader  bool   `yaml:"implicit_header"`
	PayloadLength   byte   `yaml:"payload_length"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// SendConfig controls the periodic sender.
type SendConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Load loads configuration from file. An empty filename yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Config{
		Log:  LogConfig{Level: "info"},
		Send: SendConfig{Interval: time.Second, Timeout: 5 * time.Second},
	}
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if f := os.Getenv("SX127X_FREQUENCY"); f != "" {
		c.Radio.Frequency = f
	}
	if level := os.Getenv("SX127X_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Options converts the radio section to driver options.
func (r *RadioConfig) Options() (*sx127x.Options, error) {
	o := &sx127x.Options{
		SPIBus:          r.SPIBus,
		SPIDevice:       r.SPIDevice,
		Transport:       r.Transport,
		GPIO:            r.GPIO,
		GPIOChip:        r.GPIOChip,
		ResetPin:        r.ResetPin,
		InterruptPin:    r.InterruptPin,
		SpreadingFactor: r.SpreadingFactor,
		CodingRate:      sx127x.CodingRate(r.CodingRate),
		PreambleLength:  r.PreambleLength,
		SyncWord:        r.SyncWord,
		TxPower:         r.TxPower,
		CRC:             r.CRC,
		ImplicitHeader:  r.ImplicitHeader,
		PayloadLength:   r.PayloadLength,
	}
	if err := parseFrequency(r.Frequency, &o.Frequency); err != nil {
		return nil, fmt.Errorf("frequency: %w", err)
	}
	if err := parseFrequency(r.SignalBandwidth, &o.SignalBandwidth); err != nil {
		return nil, fmt.Errorf("signal_bandwidth: %w", err)
	}
	return o, nil
}

func parseFrequency(s string, f *physic.Frequency) error {
	if s == "" {
		return nil
	}
	return f.Set(s)
}
