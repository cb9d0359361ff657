// Package hub assembles the protocol engine, the command router and a
// device into the control loop of a hub.
package hub

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/brickrail/trainhub/pkg/framework"
	"github.com/brickrail/trainhub/pkg/l0/broadcast"
	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/rpc"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

// Version is reported to the host at startup.
const Version = "1.1.0"

// Defaults of Options.
const (
	DefaultSlice         = 10 * time.Millisecond
	DefaultAliveInterval = 20 * time.Second
)

// Link is the byte stream to the host. Poll waits up to timeout for
// one byte.
type Link interface {
	io.Writer
	Poll(timeout time.Duration) (byte, bool, error)
}

// Options configures a Hub.
type Options struct {
	Name     string
	Link     Link
	Store    storage.Store
	Hardware hw.Hardware
	// Clock defaults to the system clock.
	Clock         fx.Clock
	Slice         time.Duration
	AliveInterval time.Duration
	Mode          broadcast.Mode
	// Radio is required unless Mode is ModeOff.
	Radio broadcast.Radio
	// WrapNotifier decorates the notifier given to the device.
	WrapNotifier func(comm.Notifier) comm.Notifier
}

// Hub owns the engine and the device and runs them in a Loop.
type Hub struct {
	Options

	Loop        *fx.Loop
	Engine      *comm.Engine
	Router      *Router
	Registry    *rpc.Registry
	Device      Device
	Coordinator *broadcast.Coordinator
	Observer    *broadcast.Observer

	ready      bool
	aliveWatch *fx.Stopwatch
}

// New assembles a Hub running the device created by factory.
func New(opts Options, factory DeviceFactory) (*Hub, error) {
	if opts.Link == nil {
		return nil, fmt.Errorf("link is required")
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemory(storage.DefaultCells)
	}
	if opts.Clock == nil {
		opts.Clock = fx.NewSystemClock()
	}
	if opts.Slice == 0 {
		opts.Slice = DefaultSlice
	}
	if opts.AliveInterval == 0 {
		opts.AliveInterval = DefaultAliveInterval
	}
	if opts.Mode != broadcast.ModeOff && opts.Radio == nil {
		return nil, fmt.Errorf("broadcast mode %s requires a radio", opts.Mode)
	}

	h := &Hub{
		Options:    opts,
		Loop:       fx.NewLoop(),
		Engine:     comm.NewEngine(opts.Link, opts.Clock),
		aliveWatch: fx.NewStopwatch(opts.Clock),
	}
	h.Loop.Clock = opts.Clock

	var notifier comm.Notifier = h.Engine
	if opts.WrapNotifier != nil {
		notifier = opts.WrapNotifier(notifier)
	}
	h.Device = factory(opts.Hardware, opts.Store, notifier)
	if c, ok := h.Device.(Configurable); ok {
		if err := c.Configure(); err != nil {
			return nil, fmt.Errorf("configure %s: %w", h.Device.Name(), err)
		}
	}
	registry, err := rpc.NewRegistry(h.Device.Ops()...)
	if err != nil {
		return nil, err
	}
	h.Registry = registry

	switch opts.Mode {
	case broadcast.ModeRelay:
		h.Coordinator = broadcast.NewCoordinator(opts.Radio)
	case broadcast.ModeObserve:
		handler, ok := h.Device.(broadcast.BeaconHandler)
		if !ok {
			return nil, fmt.Errorf("device %s can't observe beacons", h.Device.Name())
		}
		h.Observer = broadcast.NewObserver(opts.Radio, opts.Name, handler)
	}

	h.Router = &Router{
		Registry:    registry,
		Store:       opts.Store,
		Coordinator: h.Coordinator,
		OnReady:     h.becomeReady,
		OnStop:      h.Loop.Stop,
	}
	h.Engine.Handler = h.Router
	h.Loop.Add(h)
	return h, nil
}

// AddToLoop implements fx.LoopAdder.
func (h *Hub) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvInput, fx.ControlFunc(h.pollInput))
	loop.AddController(fx.PrLvSense, fx.ControlFunc(h.checkButton))
	loop.AddController(fx.PrLvTimer, fx.ControlFunc(h.checkTimers))
	if h.Observer != nil {
		loop.AddController(fx.PrLvControl, fx.ControlFunc(h.drainBeacons))
	}
	loop.AddController(fx.PrLvAcuate, fx.ControlFunc(h.updateDevice))
}

// Ready indicates the ready transition happened.
func (h *Hub) Ready() bool {
	return h.ready
}

// Start reports the version and the first alive message to the host.
func (h *Hub) Start() error {
	glog.Infof("hub %s (%s) version %s", h.Name, h.Device.Name(), Version)
	h.aliveWatch.Reset()
	if err := h.Engine.EmitSys(comm.SysVersion, []byte(Version)...); err != nil {
		return err
	}
	return h.sendAlive()
}

// Run starts the hub and runs the loop until stopped by the host, by a
// fatal error or by ctx. The device is shut down on exit.
func (h *Hub) Run(ctx context.Context) error {
	err := h.Start()
	if err == nil {
		err = h.Loop.Run(ctx)
	}
	if err != nil {
		glog.Errorf("hub stopped: %v", err)
		h.setLight(hw.LightRed)
	}
	if shutdownErr := h.Device.Shutdown(); shutdownErr != nil {
		glog.Errorf("shutdown %s: %v", h.Device.Name(), shutdownErr)
	}
	return err
}

func (h *Hub) becomeReady() error {
	glog.Infof("%s ready", h.Device.Name())
	h.ready = true
	if err := h.Device.Ready(); err != nil {
		return err
	}
	h.setLight(hw.LightGreen)
	return h.Engine.EmitSys(comm.SysReady)
}

func (h *Hub) sendAlive() error {
	var voltage, current int
	if b := h.Hardware.Battery; b != nil {
		voltage, current = b.Voltage(), b.Current()
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data, uint16(voltage))
	binary.BigEndian.PutUint16(data[2:], uint16(current))
	glog.V(1).Infof("alive %dmV %dmA", voltage, current)
	return h.Engine.EmitSys(comm.SysAlive, data...)
}

func (h *Hub) setLight(color string) {
	if h.Hardware.Light != nil {
		h.Hardware.Light.SetColor(color)
	}
}

func (h *Hub) pollInput(fx.ControlContext) error {
	b, ok, err := h.Link.Poll(h.Slice)
	if err != nil {
		return fx.Fatal(err)
	}
	if !ok {
		return nil
	}
	return fx.Fatal(h.Engine.OnByte(b))
}

func (h *Hub) checkButton(fx.ControlContext) error {
	if h.ready || h.Hardware.Button == nil || !h.Hardware.Button.Pressed() {
		return nil
	}
	glog.Info("button pressed")
	return fx.Fatal(h.becomeReady())
}

func (h *Hub) checkTimers(fx.ControlContext) error {
	if err := h.Engine.CheckInputTimeout(); err != nil {
		return fx.Fatal(err)
	}
	if err := h.Engine.CheckOutputTimeout(); err != nil {
		return fx.Fatal(err)
	}
	if h.Mode != broadcast.ModeObserve && h.aliveWatch.Elapsed() > h.AliveInterval {
		h.aliveWatch.Reset()
		return fx.Fatal(h.sendAlive())
	}
	return nil
}

func (h *Hub) drainBeacons(fx.ControlContext) error {
	return h.Observer.Drain()
}

func (h *Hub) updateDevice(ctx fx.ControlContext) error {
	if !h.ready {
		return nil
	}
	return h.Device.Update(ctx.Delta())
}
