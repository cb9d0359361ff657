// Package msgs provides the telemetry messages a hub mirrors to the
// monitoring side, wrapped in a Typed envelope.
package msgs

// Telemetry is one-way: hubs publish events, monitors consume them.
// The control protocol between host and hub never goes through here.
//
// Producer: hub
// Consumer: trainmon and other observers
