// Package env sets up a hub from flags and environment variables.
package env

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/golang/glog"

	fx "github.com/brickrail/trainhub/pkg/framework"
	"github.com/brickrail/trainhub/pkg/l0/broadcast"
	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/hub"
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/storage"
	"github.com/brickrail/trainhub/pkg/l1"
	"github.com/brickrail/trainhub/pkg/l1/comm/mqtt"
	l1env "github.com/brickrail/trainhub/pkg/l1/env"
	"github.com/brickrail/trainhub/pkg/l1/telemetry"
	"github.com/brickrail/trainhub/pkg/layout"
	"github.com/brickrail/trainhub/pkg/link"
	"github.com/brickrail/trainhub/pkg/sim"
	"github.com/brickrail/trainhub/pkg/train"
)

// DefaultTrack is the simulated track of a train hub.
const DefaultTrack = "3000:blue@400,red@700,blue@1900,red@2200"

// Config provides common options to set up a hub.
type Config struct {
	Name   string
	Device string

	// LinkURL is the host link, see link.Open.
	LinkURL string
	// StorageURL is the configuration store, see storage.Open.
	StorageURL string
	// RadioURL is the MQTT broker carrying beacons.
	// e.g. mqtt://host:port/topic-prefix
	RadioURL string
	// TelemetryURL publishes device data, see telemetry.OpenSink.
	TelemetryURL string
	// Broadcast is the broadcast mode: off, relay or observe.
	Broadcast string

	// Slice is the input poll timeout. Zero uses the default of the
	// device.
	Slice         time.Duration
	AliveInterval time.Duration

	// Track is the simulated track of a train.
	Track string
	// Ports is the number of motor ports.
	Ports int
	// AutoReady presses the button at start.
	AutoReady bool
}

// Factories creates devices by name.
var Factories = map[string]hub.DeviceFactory{
	"train": func(h hw.Hardware, s storage.Store, n comm.Notifier) hub.Device {
		return train.New(h, s, n)
	},
	"layout": func(h hw.Hardware, s storage.Store, n comm.Notifier) hub.Device {
		return layout.New(h, s, n)
	},
}

var defaultConfig = Config{
	Device:        "train",
	LinkURL:       "stdio:",
	StorageURL:    "mem:",
	Broadcast:     broadcast.ModeOff.String(),
	AliveInterval: hub.DefaultAliveInterval,
	Track:         DefaultTrack,
	Ports:         2,
}

func init() {
	defaultConfig.Name = l1env.Getenv("TRAINHUB_NAME", "")
	defaultConfig.Device = l1env.Getenv("TRAINHUB_DEVICE", defaultConfig.Device)
	defaultConfig.LinkURL = l1env.Getenv("TRAINHUB_LINK", defaultConfig.LinkURL)
	defaultConfig.StorageURL = l1env.Getenv("TRAINHUB_STORAGE", defaultConfig.StorageURL)
	defaultConfig.RadioURL = l1env.Getenv("TRAINHUB_RADIO_URL", defaultConfig.RadioURL)
	defaultConfig.TelemetryURL = l1env.Getenv("TRAINHUB_TELEMETRY_URL", defaultConfig.TelemetryURL)
	defaultConfig.Broadcast = l1env.Getenv("TRAINHUB_BROADCAST", defaultConfig.Broadcast)
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Name, "name", defaultConfig.Name, "Hub name, defaults to one derived from the machine ID")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Device: train or layout")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Host link URL: serial:/dev/ttyUSB0?baud=115200, ws://host/path, ws+listen://:8080/hub or stdio:")
	flag.StringVar(&defaultConfig.StorageURL, "storage", defaultConfig.StorageURL, "Storage URL: mem: or leveldb:path")
	flag.StringVar(&defaultConfig.RadioURL, "radio", defaultConfig.RadioURL, "MQTT broker URL carrying beacons")
	flag.StringVar(&defaultConfig.TelemetryURL, "telemetry", defaultConfig.TelemetryURL, "Telemetry URL: mqtt://host:port/prefix or file:path")
	flag.StringVar(&defaultConfig.Broadcast, "broadcast", defaultConfig.Broadcast, "Broadcast mode: off, relay or observe")
	flag.DurationVar(&defaultConfig.Slice, "slice", defaultConfig.Slice, "Input poll timeout per loop iteration")
	flag.DurationVar(&defaultConfig.AliveInterval, "alive", defaultConfig.AliveInterval, "Interval of alive messages")
	flag.StringVar(&defaultConfig.Track, "track", defaultConfig.Track, "Simulated track: length:color@pos,...")
	flag.IntVar(&defaultConfig.Ports, "ports", defaultConfig.Ports, "Number of motor ports")
	flag.BoolVar(&defaultConfig.AutoReady, "ready", defaultConfig.AutoReady, "Press the button at start")
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

// Env is a hub with everything opened from Config.
type Env struct {
	Config *Config
	Hub    *hub.Hub
	Store  storage.Store
	Link   io.ReadWriteCloser
	// Radio is nil when broadcast is off.
	Radio *mqtt.Radio
	// Mirror is nil without telemetry.
	Mirror *telemetry.Mirror

	panel     *sim.Panel
	train     *sim.Train
	runnables []fx.Runnable
	closers   []io.Closer
}

// NewEnv opens everything and creates the hub.
func (c *Config) NewEnv() (env *Env, err error) {
	factory, ok := Factories[c.Device]
	if !ok {
		return nil, fmt.Errorf("unknown device %q", c.Device)
	}
	mode, err := broadcast.ParseMode(c.Broadcast)
	if err != nil {
		return nil, err
	}
	name := c.Name
	if name == "" {
		name = l1env.DefaultHubName()
	}
	env = &Env{Config: c}
	defer func() {
		if err != nil {
			env.Close()
		}
	}()

	opts := hub.Options{
		Name:          name,
		Slice:         c.Slice,
		AliveInterval: c.AliveInterval,
		Mode:          mode,
	}
	if opts.Slice == 0 && c.Device == "layout" {
		opts.Slice = layout.LoopInterval
	}
	opts.Hardware = env.simulate(c)

	if env.Store, err = storage.Open(c.StorageURL); err != nil {
		return
	}
	opts.Store = env.Store
	if closer, ok := env.Store.(io.Closer); ok {
		env.closers = append(env.closers, closer)
	}

	if mode != broadcast.ModeOff {
		if opts.Radio, err = env.openRadio(c.RadioURL, name); err != nil {
			return
		}
	}

	if c.TelemetryURL != "" {
		var sink telemetry.Sink
		info := l1.HubInfo{Name: name, Device: c.Device, Version: hub.Version}
		if sink, err = telemetry.OpenSink(c.TelemetryURL, info); err != nil {
			return
		}
		env.runnables = append(env.runnables, fx.NamedRun("telemetry", sink))
		opts.WrapNotifier = func(n comm.Notifier) comm.Notifier {
			env.Mirror = telemetry.NewMirror(n, name, sink)
			env.runnables = append(env.runnables, fx.NamedRun("mirror", env.Mirror))
			return env.Mirror
		}
	}

	glog.Infof("waiting for host on %s", c.LinkURL)
	if env.Link, err = link.Open(c.LinkURL); err != nil {
		return
	}
	env.closers = append(env.closers, env.Link)
	opts.Link = link.NewPoller(env.Link)

	if env.Hub, err = hub.New(opts, factory); err != nil {
		return
	}
	env.Hub.Loop.Add(env)
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

func (e *Env) simulate(c *Config) hw.Hardware {
	if c.Device == "train" {
		track, err := sim.ParseTrack(c.Track)
		if err != nil {
			glog.Warningf("%v, use default track", err)
			track, _ = sim.ParseTrack(DefaultTrack)
		}
		e.train = sim.NewTrain(track, c.Ports)
		e.panel = e.train.Panel
		return e.train.Hardware()
	}
	l := sim.NewLayout(c.Ports)
	e.panel = l.Panel
	return l.Hardware()
}

func (e *Env) openRadio(brokerURL, name string) (*mqtt.Radio, error) {
	if brokerURL == "" {
		return nil, fmt.Errorf("broadcast requires a radio URL")
	}
	opts, prefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("trainhub:" + name + ":radio")
	}
	q := mqtt.NewQueue(opts, prefix)
	e.Radio = mqtt.NewRadio(q, mqtt.DefaultBeaconTopic)
	e.runnables = append(e.runnables, fx.NamedRun("radio", q))
	return e.Radio, nil
}

// AddToLoop implements fx.LoopAdder.
func (e *Env) AddToLoop(loop *fx.Loop) {
	if e.train != nil {
		loop.Add(e.train)
	}
	loop.AddRunnable(e.runnables...)
}

// Panel returns the simulated battery, light and button.
func (e *Env) Panel() *sim.Panel {
	return e.panel
}

// SimTrain returns the simulated train, nil for other devices.
func (e *Env) SimTrain() *sim.Train {
	return e.train
}

// Run runs the hub until it stops.
func (e *Env) Run(ctx context.Context) error {
	if e.Config.AutoReady {
		e.panel.Press()
	}
	return e.Hub.Run(ctx)
}

// Close releases the link and the store.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs.Add(e.closers[i].Close())
	}
	e.closers = nil
	return errs.Aggregate()
}
