package train

import (
	"math"
	"time"

	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

// Storage cells of the train configuration.
const (
	CellChromaThreshold = 0
	CellAcceleration    = 1
	CellDeceleration    = 2
	CellFastSpeed       = 3
	CellSlowSpeed       = 4
	CellCruiseSpeed     = 5
	// CellInverted is the first of MaxOutputs polarity cells.
	CellInverted = 6
)

// MaxOutputs is the number of outputs with a polarity cell.
const MaxOutputs = 6

// DefaultConfig is written to storage at startup, starting from cell 0.
var DefaultConfig = []uint32{3500, 40, 90, 100, 40, 75, 0}

// SpeedCell returns the storage cell of a speed tier.
func SpeedCell(tier byte) int {
	return 2 + int(tier)
}

// Motor ramps the drive outputs towards a target speed. Acceleration and
// deceleration are in percent per second.
type Motor struct {
	Outputs []hw.MotorSink
	Store   storage.Store

	Speed  float64
	Target float64
	Facing float64
}

// NewMotor creates a Motor facing forward.
func NewMotor(outputs []hw.MotorSink, store storage.Store) *Motor {
	return &Motor{Outputs: outputs, Store: store, Facing: 1}
}

// SetFacing sets the direction, 1 or -1.
func (m *Motor) SetFacing(facing float64) {
	m.Facing = facing
}

// SetTarget sets the target speed magnitude.
func (m *Motor) SetTarget(speed float64) {
	m.Target = speed
}

// SetSpeed sets the speed without ramping.
func (m *Motor) SetSpeed(speed float64) {
	m.Target, m.Speed = speed, speed
}

// Update ramps the speed and drives the outputs.
func (m *Motor) Update(delta time.Duration) error {
	dt := delta.Seconds()
	acc := float64(m.Store.Get(CellAcceleration))
	dec := float64(m.Store.Get(CellDeceleration))
	if m.Speed*m.Facing >= 0 {
		if math.Abs(m.Speed) < m.Target {
			m.Speed = math.Min(math.Abs(m.Speed)+dt*acc, m.Target) * m.Facing
		}
		if math.Abs(m.Speed) > m.Target {
			m.Speed = math.Max(math.Abs(m.Speed)-dt*dec, m.Target) * m.Facing
		}
	} else {
		m.Speed += dt * dec * m.Facing
	}
	return m.drive(m.Speed)
}

// Stop cuts all outputs.
func (m *Motor) Stop() error {
	m.SetSpeed(0)
	return m.drive(0)
}

func (m *Motor) drive(speed float64) error {
	for n, out := range m.Outputs {
		polarity := 1.0
		if n < MaxOutputs && m.Store.Get(CellInverted+n) != 0 {
			polarity = -1
		}
		if err := out.SetDuty(speed * polarity); err != nil {
			return err
		}
	}
	return nil
}
