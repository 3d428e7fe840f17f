package tgui

import "strings"

// Data formats inline callback data as "unit:action" (payload optional).
// Payload is kept as-is (no escaping).
func Data(unit, action, payload string) string {
	unit = strings.TrimSpace(unit)
	action = strings.TrimSpace(action)
	if payload == "" {
		return unit + ":" + action
	}
	return unit + ":" + action + ":" + payload
}

// Split parses callback data produced by Data back into unit, action, payload.
func Split(data string) (unit, action, payload string) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 3)
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 2:
		return parts[0], parts[1], ""
	case 1:
		return parts[0], "", ""
	default:
		return "", "", ""
	}
}
