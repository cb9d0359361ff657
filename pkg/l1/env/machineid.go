// Package env provides defaults shared by the commands.
package env

import (
	"os"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID so it isn't exposed on the broker.
const AppID = "trainhub"

// MachineID retrieves an ID identifying the machine.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id: %v", err)
		if id, err = os.Hostname(); err != nil {
			return "unknown"
		}
	}
	return id
}

// DefaultHubName derives a hub name from the machine ID.
func DefaultHubName() string {
	id := MachineID()
	if len(id) > 8 {
		id = id[:8]
	}
	return "hub-" + strings.ToLower(id)
}

// Getenv returns the value of key or def when unset.
func Getenv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
