package board

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/uartlink/pkg/framework"
	"github.com/robotalks/uartlink/pkg/l0/blink"
	"github.com/robotalks/uartlink/pkg/l0/frame"
	"github.com/robotalks/uartlink/pkg/l0/serial"
)

// Config defines the configurations of a board.
type Config struct {
	LogLevel        string
	TickPeriod      time.Duration
	BlinkHalfPeriod time.Duration
	PollInterval    time.Duration
	HeaderSize      int
	QueueCapacity   int
}

var defaultConfig = Config{
	LogLevel:        "trace",
	TickPeriod:      framework.DefaultTickPeriod,
	BlinkHalfPeriod: blink.DefaultHalfPeriod,
	PollInterval:    serial.DefaultPollInterval,
	HeaderSize:      frame.DefaultHeaderSize,
}

func init() {
	if val := os.Getenv("UARTLINK_LOG_LEVEL"); val != "" {
		defaultConfig.LogLevel = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.LogLevel, "log-level", defaultConfig.LogLevel, "Diagnostic line level filter: trace, debug, info, warn, error or off.")
	flag.DurationVar(&defaultConfig.TickPeriod, "tick", defaultConfig.TickPeriod, "Timer interrupt period.")
	flag.DurationVar(&defaultConfig.BlinkHalfPeriod, "blink", defaultConfig.BlinkHalfPeriod, "LED half period.")
	flag.DurationVar(&defaultConfig.PollInterval, "poll", defaultConfig.PollInterval, "Receive task poll interval.")
	flag.IntVar(&defaultConfig.HeaderSize, "header-size", defaultConfig.HeaderSize, "Frame header size in bytes.")
	flag.IntVar(&defaultConfig.QueueCapacity, "queue", defaultConfig.QueueCapacity, "Receive queue capacity in bytes, 0 for one maximum frame.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

func (c *Config) linkConfig() serial.Config {
	return serial.Config{
		HeaderSize:    c.HeaderSize,
		QueueCapacity: c.QueueCapacity,
		PollInterval:  c.PollInterval,
	}
}
