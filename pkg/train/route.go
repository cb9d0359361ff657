package train

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
)

// Marker colors.
const (
	ColorYellow byte = 0
	ColorBlue   byte = 1
	ColorGreen  byte = 2
	ColorRed    byte = 3
	ColorAny    byte = 15
)

// Sensor keys describe what a marker means for the leg.
const (
	KeyNone  byte = 0
	KeyEnter byte = 1
	KeyIn    byte = 2
)

// Speed tiers.
const (
	SpeedFast   byte = 1
	SpeedSlow   byte = 2
	SpeedCruise byte = 3
)

// Leg flags.
const (
	LegBackwards byte = 1
	LegStop      byte = 2
)

// Train state flags, combined with a speed tier.
const (
	StateStop      byte = 32
	StateRun       byte = 64
	StateBackwards byte = 128
)

// DATA message codes.
const (
	DataRouteComplete    byte = 1
	DataLegAdvance       byte = 2
	DataSensorAdvance    byte = 3
	DataUnexpectedMarker byte = 4
)

var (
	// ErrNoRoute indicates the route was retired.
	ErrNoRoute = errors.New("no active route")
	// ErrLegComplete indicates a marker after the leg's last marker.
	ErrLegComplete = errors.New("leg already complete")
	// ErrLastLeg indicates advancing past the last leg.
	ErrLastLeg = errors.New("no leg to advance to")
)

// Marker encodes a marker descriptor.
func Marker(speed, key, color byte) byte {
	return speed<<6 | key<<4 | color
}

// DataEmitter sends DATA messages to the host.
type DataEmitter interface {
	EmitData(data []byte) error
}

// Leg is a sequence of markers the train passes between two stops or
// reversals. Index is the last passed marker. The first leg of a route
// is pending (not Started) until its first marker is passed, later legs
// start at the marker ending the previous leg. A leg with a single
// marker is complete from the start.
type Leg struct {
	Markers    []byte
	IntentStop bool
	Backwards  bool
	Index      int
	Started    bool
	Entered    bool
}

// NewLeg decodes markers followed by the flags byte.
func NewLeg(data []byte) (*Leg, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("leg needs markers and flags: % x", data)
	}
	flags := data[len(data)-1]
	return &Leg{
		Markers:    append([]byte(nil), data[:len(data)-1]...),
		IntentStop: flags&LegStop != 0,
		Backwards:  flags&LegBackwards != 0,
	}, nil
}

// Complete indicates the progress reached the last marker.
func (l *Leg) Complete() bool {
	return l.Index == len(l.Markers)-1
}

// NextColor returns the color of the next expected marker.
func (l *Leg) NextColor() byte {
	if !l.Started {
		return l.Markers[0] & 0x0f
	}
	return l.Markers[l.Index+1] & 0x0f
}

func (l *Leg) prevSpeed() byte {
	return (l.Markers[l.Index] >> 6) & 0x03
}

func (l *Leg) prevKey() byte {
	return (l.Markers[l.Index] >> 4) & 0x03
}

func (l *Leg) pass() {
	if l.Started {
		l.Index++
	}
	l.Started = true
	if l.prevKey() == KeyEnter {
		l.Entered = true
	}
}

// State derives the train state. Slowing down starts after the enter
// marker when the leg ends in a stop or a reversal.
func (l *Leg) State(willTurn bool) byte {
	speed := l.prevSpeed()
	if l.IntentStop || willTurn {
		if l.Complete() {
			return StateStop
		}
		if l.Entered {
			speed = SpeedSlow
		}
	}
	state := StateRun | speed
	if l.Backwards {
		state |= StateBackwards
	}
	return state
}

// Route is the sequence of legs assigned by the host.
type Route struct {
	Legs  []*Leg
	Index int

	emitter DataEmitter
}

// NewRoute creates the default route: cruise until any marker, then stop.
func NewRoute(emitter DataEmitter) *Route {
	return &Route{
		Legs: []*Leg{{
			Markers:    []byte{Marker(SpeedCruise, KeyIn, ColorAny)},
			IntentStop: true,
		}},
		emitter: emitter,
	}
}

// Current returns the active leg.
func (r *Route) Current() *Leg {
	return r.Legs[r.Index]
}

// Next returns the leg after the active one, or nil.
func (r *Route) Next() *Leg {
	if r.Index+1 < len(r.Legs) {
		return r.Legs[r.Index+1]
	}
	return nil
}

// Finished indicates the last leg is complete.
func (r *Route) Finished() bool {
	return r.Next() == nil && r.Current().Complete()
}

// SetLeg replaces the leg at data[0] or appends it if data[0] equals
// the number of legs.
func (r *Route) SetLeg(data []byte) error {
	if len(data) < 1 {
		return fmt.Errorf("missing leg index")
	}
	index := int(data[0])
	if index > len(r.Legs) {
		return fmt.Errorf("leg index %d out of range (%d legs)", index, len(r.Legs))
	}
	leg, err := NewLeg(data[1:])
	if err != nil {
		return err
	}
	if index == len(r.Legs) {
		r.Legs = append(r.Legs, leg)
	} else {
		r.Legs[index] = leg
	}
	return nil
}

// SetIntention sets the stop intent of a leg.
func (r *Route) SetIntention(index int, stop bool) error {
	if index < 0 || index >= len(r.Legs) {
		return fmt.Errorf("leg index %d out of range (%d legs)", index, len(r.Legs))
	}
	r.Legs[index].IntentStop = stop
	return nil
}

// Advance activates the next leg.
func (r *Route) Advance() error {
	if r.Index+1 >= len(r.Legs) {
		return ErrLastLeg
	}
	r.Index++
	if leg := r.Current(); !leg.Started {
		leg.pass()
	}
	return r.emit(DataLegAdvance, byte(r.Index))
}

// AdvanceSensor handles a passed marker of color. It returns false
// with the expected color if the marker doesn't match the leg.
func (r *Route) AdvanceSensor(color byte) (expected byte, matched bool, err error) {
	leg := r.Current()
	if leg.Complete() {
		return ColorAny, false, ErrLegComplete
	}
	expected = leg.NextColor()
	if expected != color && expected != ColorAny {
		return expected, false, nil
	}
	leg.pass()
	if err = r.emit(DataSensorAdvance, byte(leg.Index)); err != nil {
		return expected, true, err
	}
	if leg.Complete() {
		if !leg.IntentStop {
			err = r.Advance()
		} else if r.Next() == nil {
			err = r.emit(DataRouteComplete, byte(r.Index))
		}
	}
	return expected, true, err
}

// State derives the train state with one leg lookahead: a reversal
// at the end of the leg is handled like a stop.
func (r *Route) State() byte {
	leg := r.Current()
	var willTurn bool
	if next := r.Next(); next != nil {
		willTurn = leg.Backwards != next.Backwards
	}
	return leg.State(willTurn)
}

func (r *Route) emit(code, index byte) error {
	glog.V(1).Infof("route event %d: %d", code, index)
	if r.emitter == nil {
		return nil
	}
	return r.emitter.EmitData([]byte{code, index})
}
