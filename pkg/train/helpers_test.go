package train

import (
	"github.com/brickrail/trainhub/pkg/l0/hw"
	"github.com/brickrail/trainhub/pkg/l0/storage"
)

type testNotifier struct {
	data  [][]byte
	dumps map[byte][]byte
}

func (n *testNotifier) EmitData(data []byte) error {
	n.data = append(n.data, append([]byte(nil), data...))
	return nil
}

func (n *testNotifier) Dump(kind byte, data []byte) error {
	if n.dumps == nil {
		n.dumps = make(map[byte][]byte)
	}
	n.dumps[kind] = data
	return nil
}

func (n *testNotifier) codes() []byte {
	var codes []byte
	for _, d := range n.data {
		codes = append(codes, d[0])
	}
	return codes
}

type testMotor struct {
	duty float64
}

func (m *testMotor) SetDuty(duty float64) error {
	m.duty = duty
	return nil
}

type testColorSensor struct {
	samples []hw.HSV
}

func (s *testColorSensor) HSV() (hw.HSV, error) {
	if len(s.samples) == 0 {
		return hw.HSV{}, nil
	}
	sample := s.samples[0]
	s.samples = s.samples[1:]
	return sample, nil
}

func newTestStore() storage.Store {
	store := storage.NewMemory(storage.DefaultCells)
	if err := storage.Defaults(store, DefaultConfig...); err != nil {
		panic(err)
	}
	return store
}

var (
	red   = hw.HSV{H: 355, S: 90, V: 80}
	blue  = hw.HSV{H: 215, S: 90, V: 80}
	green = hw.HSV{H: 130, S: 90, V: 80}
	track = hw.HSV{H: 40, S: 10, V: 30}
)
