package downlink

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

const appID = "avionics"

// UnitID retrieves an ID identifying this flight computer. It is derived
// from the machine ID, or the hostname when the machine ID is missing.
func UnitID() string {
	if id, err := machineid.ProtectedID(appID); err == nil {
		return id[:12]
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
