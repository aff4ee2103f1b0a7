package mqtt

import "strings"

// Command topics have the shape <prefix>/<device>/set/<command>.
const (
	commandCalibration  = "calibration"
	commandInputActions = "input_actions"
)

// parseCommandTopic splits a command topic into device name and command.
// Device names may not contain '/'.
func parseCommandTopic(prefix, topic string) (device, command string, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" {
		return "", "", false
	}
	if parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// reportTopic is where a device's calibration report is published, retained.
func reportTopic(prefix, device string) string {
	return prefix + "/" + device + "/calibration"
}

// eventTopic carries the live event stream.
func eventTopic(prefix string) string {
	return prefix + "/bridge/event"
}
