package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/brickrail/trainhub/pkg/framework"
	"github.com/brickrail/trainhub/pkg/l0/hw"
)

// Defaults of simulated hardware.
const (
	DefaultVoltage  = 7400
	DefaultCurrent  = 60
	DefaultMaxSpeed = 250.0 // mm/s at full duty
	DefaultAccel    = 400.0 // mm/s²
)

// Output is a simulated motor port.
type Output struct {
	Port int

	lock sync.Mutex
	duty float64
}

// SetDuty implements hw.MotorSink.
func (o *Output) SetDuty(duty float64) error {
	o.lock.Lock()
	changed := o.duty != duty
	o.duty = duty
	o.lock.Unlock()
	if changed {
		glog.V(2).Infof("port %d duty %.1f", o.Port, duty)
	}
	return nil
}

// Duty returns the current duty.
func (o *Output) Duty() float64 {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.duty
}

// Panel is the battery, light and button of a simulated hub.
type Panel struct {
	MilliVolts int
	MilliAmps  int

	light   atomic.Value
	pressed int32
}

// NewPanel creates a Panel with a full battery.
func NewPanel() *Panel {
	p := &Panel{MilliVolts: DefaultVoltage, MilliAmps: DefaultCurrent}
	p.light.Store(hw.LightOff)
	return p
}

// Voltage implements hw.Battery.
func (p *Panel) Voltage() int {
	return p.MilliVolts
}

// Current implements hw.Battery.
func (p *Panel) Current() int {
	return p.MilliAmps
}

// SetColor implements hw.Light.
func (p *Panel) SetColor(color string) {
	glog.Infof("light %s", color)
	p.light.Store(color)
}

// Color returns the color of the light.
func (p *Panel) Color() string {
	return p.light.Load().(string)
}

// Press holds the button down until Release.
func (p *Panel) Press() {
	atomic.StoreInt32(&p.pressed, 1)
}

// Release releases the button.
func (p *Panel) Release() {
	atomic.StoreInt32(&p.pressed, 0)
}

// Pressed implements hw.Button.
func (p *Panel) Pressed() bool {
	return atomic.LoadInt32(&p.pressed) != 0
}

// Layout is a simulated layout controller hub.
type Layout struct {
	*Panel
	Outputs []*Output
}

// NewLayout creates a Layout with n ports.
func NewLayout(n int) *Layout {
	l := &Layout{Panel: NewPanel()}
	for i := 0; i < n; i++ {
		l.Outputs = append(l.Outputs, &Output{Port: i})
	}
	return l
}

// Hardware returns the hardware of the hub.
func (l *Layout) Hardware() hw.Hardware {
	h := hw.Hardware{Battery: l.Panel, Light: l.Panel, Button: l.Panel}
	for _, out := range l.Outputs {
		h.Motors = append(h.Motors, out)
	}
	return h
}

// Train is a simulated train hub running on a Track. The speed follows
// the duty of the first output with limited acceleration.
type Train struct {
	*Panel
	Track    *Track
	Outputs  []*Output
	MaxSpeed float64
	Accel    float64

	lock  sync.Mutex
	pos   float64
	speed float64
}

// NewTrain creates a Train with n motors at position 0 of track.
func NewTrain(track *Track, n int) *Train {
	t := &Train{
		Panel:    NewPanel(),
		Track:    track,
		MaxSpeed: DefaultMaxSpeed,
		Accel:    DefaultAccel,
	}
	for i := 0; i < n; i++ {
		t.Outputs = append(t.Outputs, &Output{Port: i})
	}
	return t
}

// Hardware returns the hardware of the hub.
func (t *Train) Hardware() hw.Hardware {
	h := hw.Hardware{Sensor: t, Battery: t.Panel, Light: t.Panel, Button: t.Panel}
	for _, out := range t.Outputs {
		h.Motors = append(h.Motors, out)
	}
	return h
}

// HSV implements hw.ColorSensor.
func (t *Train) HSV() (hw.HSV, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.Track.ColorAt(t.pos), nil
}

// Position returns the position on the track and the speed.
func (t *Train) Position() (pos, speed float64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.pos, t.speed
}

// Place moves the train to pos.
func (t *Train) Place(pos float64) {
	t.lock.Lock()
	t.pos = t.Track.Wrap(pos)
	t.lock.Unlock()
}

// Advance moves the train for delta.
func (t *Train) Advance(delta time.Duration) {
	if len(t.Outputs) == 0 {
		return
	}
	desired := t.Outputs[0].Duty() * t.MaxSpeed / 100
	secs := delta.Seconds()
	t.lock.Lock()
	defer t.lock.Unlock()
	if diff, step := desired-t.speed, t.Accel*secs; t.Accel <= 0 || diff <= step && diff >= -step {
		t.speed = desired
	} else if diff > 0 {
		t.speed += step
	} else {
		t.speed -= step
	}
	t.pos = t.Track.Wrap(t.pos + t.speed*secs)
}

// AddToLoop implements fx.LoopAdder. The train moves before sensors are
// sampled.
func (t *Train) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, fx.ControlFunc(func(ctx fx.ControlContext) error {
		t.Advance(ctx.Delta())
		return nil
	}))
}
