// Package env identifies the host the link runs on.
package env

import (
	"github.com/denisbrodbeck/machineid"
)

// AppID salts the device ID so the raw machine ID is never published.
const AppID = "voicelink"

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		panic(err)
	}
	return id
}

// DeviceID returns a stable identifier of this host, used in MQTT topics.
// It is a hash of the machine ID keyed by AppID, shortened to n hex
// characters when 0 < n < 64.
func DeviceID(n int) (string, error) {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return "", err
	}
	if n > 0 && n < len(id) {
		id = id[:n]
	}
	return id, nil
}
