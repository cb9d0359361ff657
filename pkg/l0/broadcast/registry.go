// Package broadcast coordinates peer hubs over a shared radio channel.
//
// A relay hub receives peer states from the host and re-broadcasts the
// states of the recently seen peers as a beacon. Observer hubs listen to
// beacons and pick the entries addressed to their own identity.
package broadcast

// MaxPeers is the number of peers tracked by a Registry.
const MaxPeers = 8

// EntrySize is the encoded size of a beacon entry: id_hi, id_lo, state.
const EntrySize = 3

// Registry tracks the states of the most recently seen peers.
type Registry struct {
	ids    []uint16
	states map[uint16]byte
}

// Record sets the state of a peer and marks it as the most recent.
// The oldest peer is evicted when more than MaxPeers are tracked.
func (r *Registry) Record(id uint16, state byte) {
	if r.states == nil {
		r.states = make(map[uint16]byte)
	}
	if _, exists := r.states[id]; exists {
		for n, existing := range r.ids {
			if existing == id {
				r.ids = append(r.ids[:n], r.ids[n+1:]...)
				break
			}
		}
	}
	r.ids = append(r.ids, id)
	r.states[id] = state
	if len(r.ids) > MaxPeers {
		delete(r.states, r.ids[0])
		r.ids = r.ids[1:]
	}
}

// Len returns the number of tracked peers.
func (r *Registry) Len() int {
	return len(r.ids)
}

// State returns the last recorded state of a peer.
func (r *Registry) State(id uint16) (byte, bool) {
	state, ok := r.states[id]
	return state, ok
}

// Beacon encodes tracked peers from the oldest to the most recent.
func (r *Registry) Beacon() []byte {
	data := make([]byte, 0, len(r.ids)*EntrySize)
	for _, id := range r.ids {
		data = append(data, byte(id>>8), byte(id), r.states[id])
	}
	return data
}
