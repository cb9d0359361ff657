// Package hw defines the physical collaborators of a hub.
package hw

// HSV is a color sensor sample. H is in degrees 0-359, S and V
// in percent 0-100.
type HSV struct {
	H uint16
	S uint8
	V uint8
}

// Chroma is the product of saturation and value.
func (c HSV) Chroma() int {
	return int(c.S) * int(c.V)
}

// MotorSink drives one physical output with a signed duty cycle
// in percent.
type MotorSink interface {
	SetDuty(duty float64) error
}

// ColorSensor samples the color under the sensor.
type ColorSensor interface {
	HSV() (HSV, error)
}

// Battery reports voltage (mV) and current (mA).
type Battery interface {
	Voltage() int
	Current() int
}

// Light colors.
const (
	LightOff   = "off"
	LightGreen = "green"
	LightRed   = "red"
)

// Light is the status indicator.
type Light interface {
	SetColor(color string)
}

// Button is the external trigger for the ready transition.
type Button interface {
	Pressed() bool
}

// Hardware groups the collaborators of a hub. Motors and Sensor are
// only used by devices which have them.
type Hardware struct {
	Motors  []MotorSink
	Sensor  ColorSensor
	Battery Battery
	Light   Light
	Button  Button
}
