package sh

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/uartlink/pkg/l0/frame"
	"github.com/robotalks/uartlink/pkg/l0/hal"
)

// Config defines how the shell talks to the line.
type Config struct {
	Port        string
	Baud        int
	HeaderSize  int
	ReadTimeout time.Duration
}

var defaultConfig = Config{
	Baud:        hal.DefaultBaud,
	HeaderSize:  frame.DefaultHeaderSize,
	ReadTimeout: 100 * time.Millisecond,
}

func init() {
	if val := os.Getenv("UARTLINK_PORT"); val != "" {
		defaultConfig.Port = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port to open at start.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial port baud rate.")
	flag.IntVar(&defaultConfig.HeaderSize, "header-size", defaultConfig.HeaderSize, "Frame header size in bytes.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

func (c *Config) serialConfig(port string) hal.SerialConfig {
	return hal.SerialConfig{Name: port, Baud: c.Baud, ReadTimeout: c.ReadTimeout}
}
