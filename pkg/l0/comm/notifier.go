package comm

// Notifier is the outbound capability given to device logic.
type Notifier interface {
	// EmitData sends a DATA message to the host.
	EmitData(data []byte) error
	// Dump sends bulk data to the host.
	Dump(kind byte, data []byte) error
}

// Engine implements Notifier.
var _ Notifier = (*Engine)(nil)
