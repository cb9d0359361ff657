// Package l1 defines the telemetry side of a hub: what a hub announces
// about itself and how its events are published.
package l1

import (
	"github.com/brickrail/trainhub/pkg/l1/msgs"
)

// HubInfo describes a hub announced to monitors.
type HubInfo struct {
	Name    string            `json:"name"`
	Device  string            `json:"device,omitempty"`
	Version string            `json:"version,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// IsValid indicates HubInfo is valid.
func (i HubInfo) IsValid() bool {
	return i.Name != ""
}

// Publisher publishes telemetry events.
type Publisher interface {
	SendEvent(msgs.SerializableMessage) error
}
