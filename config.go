package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"aciatx/hw/acia"
	"aciatx/hw/bus"
	"aciatx/hw/clock"
	"aciatx/log"
)

type Config struct {
	Serial   SerialConfig `toml:"serial"`
	Timing   TimingConfig `toml:"timing"`
	Driver   DriverConfig `toml:"driver"`
	Pins     bus.Pinout   `toml:"pins"`
	Polarity bus.Polarity `toml:"polarity"`
}

type SerialConfig struct {
	Baud        uint32 `toml:"baud"`
	TimerHz     uint64 `toml:"timer_hz"`
	CounterBits uint   `toml:"counter_bits"`
	Format      string `toml:"format"`
}

type TimingConfig struct {
	Settle    Duration `toml:"settle"`     // between bus line transitions
	CharDelay Duration `toml:"char_delay"` // after each character
	Repeat    Duration `toml:"repeat"`     // between messages
}

type DriverConfig struct {
	Message     string `toml:"message"`
	Strict      bool   `toml:"strict"`
	MaxPolls    int    `toml:"max_polls"`
	MasterReset bool   `toml:"master_reset"`
	LED         bool   `toml:"led"`
}

// Duration is a time.Duration written as a string ("1ms") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %s", text)
	}
	d.Duration = v
	return nil
}

var defaultConfig = Config{
	Serial: SerialConfig{
		Baud:        9600,
		TimerHz:     16_000_000,
		CounterBits: 16,
		Format:      "8N1",
	},
	Timing: TimingConfig{
		Settle:    Duration{acia.DefaultSettle},
		CharDelay: Duration{5 * time.Millisecond},
		Repeat:    Duration{time.Second},
	},
	Driver: DriverConfig{
		Message:  "TESTACIA\r\n",
		MaxPolls: acia.DefaultMaxPolls,
	},
	Pins:     bus.DefaultPinout,
	Polarity: bus.DefaultPolarity,
}

var ConfigDir = sync.OnceValue(func() string {
	cfgdir, err := os.UserConfigDir()
	if err != nil {
		log.ModDrv.Warnf("no user config directory, using current directory: %v", err)
		return "."
	}
	return filepath.Join(cfgdir, "aciatx")
})

const cfgFilename = "config.toml"

// DefaultConfigPath is the path of the configuration file used when none is
// given on the command line.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), cfgFilename)
}

// LoadConfigOrDefault loads the configuration at path. Keys absent from the
// file keep their default value, a missing file gives the default
// configuration.
func LoadConfigOrDefault(path string) (Config, error) {
	cfg := defaultConfig
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		log.ModDrv.InfoZ("no config file, using defaults").
			String("path", path).
			End()
		return defaultConfig, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.ModDrv.WarnZ("unknown config key").
			String("path", path).
			Stringer("key", key).
			End()
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating its directory if needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// WriteConfig encodes cfg as TOML to w.
func WriteConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string { return e.Key + ": " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// Setup is a validated configuration, ready to build a driver.
type Setup struct {
	Plan    clock.Plan
	Control acia.Control
	Driver  acia.Config
}

// Validate checks cfg and derives the clock plan and control byte from it.
func (cfg *Config) Validate() (Setup, error) {
	var errs []error

	plan, err := clock.NewPlan(cfg.Serial.TimerHz, cfg.Serial.Baud, cfg.Serial.CounterBits)
	if err != nil {
		errs = append(errs, &ConfigError{Key: "serial", Err: err})
	}

	ctrl := acia.DefaultControl
	if format, err := acia.ParseFormat(cfg.Serial.Format); err != nil {
		errs = append(errs, &ConfigError{Key: "serial.format", Err: err})
	} else {
		ws, _ := acia.WordSelectFor(format)
		ctrl = acia.NewControl(acia.DivideBy16, ws, acia.TxRTSLow, false)
	}

	if err := cfg.Pins.Validate(); err != nil {
		errs = append(errs, &ConfigError{Key: "pins", Err: err})
	}
	if cfg.Driver.MaxPolls < 0 {
		errs = append(errs, &ConfigError{Key: "driver.max_polls", Err: fmt.Errorf("negative value %d", cfg.Driver.MaxPolls)})
	}
	if cfg.Driver.LED && cfg.Pins.LED == "" {
		errs = append(errs, &ConfigError{Key: "driver.led", Err: errors.New("no LED pin in [pins]")})
	}
	if err := errors.Join(errs...); err != nil {
		return Setup{}, err
	}

	// The open-loop mode only works if the chip is done with a character
	// before the next one is written.
	if !cfg.Driver.Strict {
		chars := time.Duration(ctrl.Format().FrameBits()) * plan.BitTime()
		if cfg.Timing.CharDelay.Duration+3*cfg.Timing.Settle.Duration < chars {
			log.ModDrv.WarnZ("character delay shorter than character time, characters will be lost").
				Duration("char_delay", cfg.Timing.CharDelay.Duration).
				Duration("char_time", chars).
				End()
		}
	}

	return Setup{
		Plan:    plan,
		Control: ctrl,
		Driver: acia.Config{
			Control:     ctrl,
			CharDelay:   cfg.Timing.CharDelay.Duration,
			MasterReset: cfg.Driver.MasterReset,
			Strict:      cfg.Driver.Strict,
			MaxPolls:    cfg.Driver.MaxPolls,
			LED:         cfg.Driver.LED,
		},
	}, nil
}
