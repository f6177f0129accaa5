package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "rove.go"

// MachineID retrieves a stable ID identifying the machine. The raw
// machine id is hashed with the application id so it isn't exposed on
// the bus. Hostname is used when the machine id is unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil {
		return id[:12]
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "rove"
}
