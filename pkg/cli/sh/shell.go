// Package sh is the interactive host shell talking to a hub.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	l1env "github.com/brickrail/trainhub/pkg/l1/env"
	"github.com/brickrail/trainhub/pkg/link"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *Config
	Conn   *Conn
}

// Config provides the options of the shell.
type Config struct {
	// LinkURL is the hub to connect, see link.Open.
	LinkURL string
	// TelemetryURL is used to discover hubs.
	TelemetryURL string
	// Timeout bounds a single command.
	Timeout time.Duration
}

// Conn is a running connection to a hub.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	URL    string
	Host   *comm.Host

	link io.ReadWriteCloser
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	defaultConfig = Config{
		TelemetryURL: "mqtt://localhost:1883/trainhub/",
		Timeout:      5 * time.Second,
	}

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&ReadyCmd,
		&StopCmd,
		&StoreCmd,
		&RPCCmd,
		&BroadcastCmd,
	}
)

func init() {
	defaultConfig.LinkURL = l1env.Getenv("TRAINCTL_LINK", defaultConfig.LinkURL)
	defaultConfig.TelemetryURL = l1env.Getenv("TRAINHUB_TELEMETRY_URL", defaultConfig.TelemetryURL)
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Hub link URL to connect at start.")
	flag.StringVar(&defaultConfig.TelemetryURL, "telemetry", defaultConfig.TelemetryURL, "Telemetry URL to discover hubs.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Timeout of a single command.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Do runs fn against the connected hub and prints the result.
func Do(c *ishell.Context, fn func(ctx context.Context, h *comm.Host) error) error {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	ctx, cancel := context.WithTimeout(s.Conn.Ctx, s.Config.Timeout)
	defer cancel()
	if err := fn(ctx, s.Conn.Host); err != nil {
		c.Err(err)
		return err
	}
	if s.OutputJSON {
		c.Println(`{"ok":true}`)
	} else {
		c.Println("OK")
	}
	return nil
}

// Call invokes an operation of the device on the hub.
func Call(c *ishell.Context, name string, args ...byte) error {
	return Do(c, func(ctx context.Context, h *comm.Host) error {
		return h.RPC(ctx, name, args...)
	})
}

// Connect connects the hub at linkURL.
func (s *Shell) Connect(linkURL string) error {
	rw, err := link.Open(linkURL)
	if err != nil {
		return err
	}
	conn := &Conn{URL: linkURL, Host: comm.NewHost(rw), link: rw}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	s.Disconnect()
	s.Conn = conn
	go s.printEvents(conn)
	go func() {
		if err := conn.Host.Run(conn.Ctx); err != nil && err != context.Canceled {
			s.Shell.Printf("link %s: %v\n", conn.URL, err)
		}
	}()
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", linkURL))
	return nil
}

// Disconnect disconnects current hub.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn.link.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

func (s *Shell) printEvents(conn *Conn) {
	for {
		select {
		case evt := <-conn.Host.EventChan():
			if s.OutputJSON {
				out, _ := json.Marshal(EventJSON(evt))
				s.Shell.Println(string(out))
			} else {
				s.Shell.Println(FormatEvent(evt))
			}
		case <-conn.Ctx.Done():
			return
		}
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.LinkURL != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.LinkURL)
		}
		if err := s.Connect(s.Config.LinkURL); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.LinkURL, err)
		}
	}
	defer s.Disconnect()

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

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}

// Store writes a storage cell on the connected hub.
func Store(c *ishell.Context, addr byte, value uint32) error {
	return Do(c, func(ctx context.Context, h *comm.Host) error {
		return h.Store(ctx, addr, value)
	})
}
