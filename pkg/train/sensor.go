package train

import (
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

// Color log layout.
const (
	ColorLogSize    = 1000
	ColorLogEntry   = 4
	ColorBufferSize = ColorLogSize + 4

	// DumpColors is the dump kind of the color log.
	DumpColors byte = 1

	// MarkerHue marks a synthetic log entry: S is 0 for a passed marker
	// and 1 for a mismatch, V packs two colors.
	MarkerHue uint16 = 361
)

// ColorHues are the reference hues of ColorYellow..ColorRed.
var ColorHues = [...]uint16{51, 219, 133, 359}

// HueDistance is the circular distance of two hues in degrees.
func HueDistance(a, b uint16) int {
	d := (int(a) - int(b) + 180) % 360
	if d < 0 {
		d += 360
	}
	d -= 180
	if d < 0 {
		return -d
	}
	return d
}

// Sensor classifies color sensor samples into markers.
type Sensor struct {
	Source hw.ColorSensor
	Store  storage.Store
	// OnExit is called with the color of a marker the train just left.
	OnExit func(color byte)

	InitialHue    uint16
	InitialChroma int
	Samples       int

	valid [len(ColorHues)]bool
	last  byte
	seen  bool
	buf   [ColorBufferSize]byte
	index int
}

// NewSensor creates a Sensor.
func NewSensor(source hw.ColorSensor, store storage.Store, onExit func(byte)) *Sensor {
	return &Sensor{Source: source, Store: store, OnExit: onExit}
}

// SetValidColors sets the colors accepted as markers.
func (s *Sensor) SetValidColors(colors []byte) {
	for n := range s.valid {
		s.valid[n] = false
	}
	for _, c := range colors {
		if int(c) < len(s.valid) {
			s.valid[c] = true
		} else {
			glog.Warningf("ignore invalid color %d", c)
		}
	}
}

// Classify returns the marker color of a sample, or false for background.
func (s *Sensor) Classify(sample hw.HSV) (byte, bool) {
	if sample.Chroma() < int(s.Store.Get(CellChromaThreshold)) {
		return 0, false
	}
	found, minErr := 0, 0
	for color, hue := range ColorHues {
		if err := HueDistance(hue, sample.H); color == 0 || err < minErr {
			found, minErr = color, err
		}
	}
	if !s.valid[found] {
		return 0, false
	}
	return byte(found), true
}

// Update samples the sensor once.
func (s *Sensor) Update() error {
	sample, err := s.Source.HSV()
	if err != nil {
		return err
	}
	s.log(sample.H, sample.S, sample.V)
	color, present := s.Classify(sample)
	if present && !s.seen {
		s.InitialHue, s.InitialChroma = sample.H, sample.Chroma()
	}
	if s.seen {
		if !present {
			s.seen = false
			if s.OnExit != nil {
				s.OnExit(s.last)
			}
			s.Samples = 0
			return nil
		}
		s.Samples++
		if color != s.last {
			s.log(MarkerHue, 1, s.last+color<<4)
			glog.Warningf("marker color inconsistent: %d, was %d", color, s.last)
		}
	}
	s.last, s.seen = color, present
	return nil
}

// LogMarker records a passed marker.
func (s *Sensor) LogMarker(color byte) {
	s.log(MarkerHue, 0, color)
}

// LogMismatch records a marker which wasn't expected.
func (s *Sensor) LogMismatch(expected, color byte) {
	s.log(MarkerHue, 1, expected+color<<4)
}

func (s *Sensor) log(h uint16, sat, val byte) {
	binary.BigEndian.PutUint16(s.buf[s.index:], h)
	s.buf[s.index+2], s.buf[s.index+3] = sat, val
	s.index = (s.index + ColorLogEntry) % ColorLogSize
}

// ColorBuffer returns the color log followed by the chroma threshold
// and the next write position.
func (s *Sensor) ColorBuffer() []byte {
	binary.BigEndian.PutUint16(s.buf[ColorLogSize:], uint16(s.Store.Get(CellChromaThreshold)))
	binary.BigEndian.PutUint16(s.buf[ColorLogSize+2:], uint16(s.index))
	return append([]byte(nil), s.buf[:]...)
}
