// Package sh provides an interactive shell over an application serial line.
package sh

import (
	"flag"
	"log"

	"github.com/abiosoft/ishell"
	"github.com/cockroachdb/errors"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool

	Shell   *ishell.Shell
	Config  *Config
	Session *Session
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var (
	// ErrNotOpen is reported by commands requiring an open line.
	ErrNotOpen = errors.New("no port open")

	evalOnly bool

	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&SendCmd,
		&SendU32Cmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

type shellWriter struct {
	sh *ishell.Shell
}

func (w shellWriter) Write(p []byte) (int, error) {
	w.sh.Print(string(p))
	return len(p), nil
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Config:      conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requiring an open line.
func MustBeOpen(fn func(c *ishell.Context, sess *Session)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		sess := ShellFrom(c).Session
		if sess == nil {
			c.Err(ErrNotOpen)
			return
		}
		fn(c, sess)
	}
}

// Open opens a port, replacing the current one.
func (s *Shell) Open(port string) error {
	sess, err := OpenSession(s.Config, port, shellWriter{sh: s.Shell})
	if err != nil {
		return err
	}
	s.Close()
	s.Session = sess
	s.Shell.SetPrompt(port + " > ")
	return nil
}

// Close closes the current port.
func (s *Shell) Close() {
	if s.Session != nil {
		if err := s.Session.Close(); err != nil {
			s.Shell.Printf("close %s: %v\n", s.Session.Name, err)
		}
		s.Session = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if s.Config.Port != "" {
		if err := s.Open(s.Config.Port); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Port, err)
		}
	}
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens a serial port.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "PORT",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("port expected"))
				return
			}
			if err := ShellFrom(c).Open(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the current port.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// SendCmd sends a frame.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "HEX...",
		Func: MustBeOpen(func(c *ishell.Context, sess *Session) {
			payload, err := ParsePayload(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sess.Send(payload)
		}),
	}

	// SendU32Cmd sends a counter frame.
	SendU32Cmd = ishell.Cmd{
		Name: "sendu32",
		Help: "N",
		Func: MustBeOpen(func(c *ishell.Context, sess *Session) {
			if len(c.Args) != 1 {
				c.Err(errors.New("number expected"))
				return
			}
			payload, err := ParseU32(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sess.Send(payload)
		}),
	}

	// StatsCmd prints line counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, sess *Session) {
			c.Println(sess.Stats().String())
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).Run(flag.Args()...)
}
