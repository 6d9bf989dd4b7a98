package tgui

import (
	"errors"
	"strings"
)

// MaxCallbackDataLen is Telegram's callback_data size limit in bytes
// for the full "scope:action:payload" string.
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")

// Data formats inline callback data as "scope:action:payload". Payload
// is kept as-is and may be empty.
func Data(scope, action, payload string) string {
	scope = strings.TrimSpace(scope)
	action = strings.TrimSpace(action)
	if payload == "" {
		return scope + ":" + action
	}
	return scope + ":" + action + ":" + payload
}

// Split breaks callback data produced by Data back into its parts.
// Missing parts come back empty.
func Split(data string) (scope, action, payload string) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 3)
	switch len(parts) {
	case 3:
		payload = parts[2]
		fallthrough
	case 2:
		action = parts[1]
		fallthrough
	case 1:
		scope = parts[0]
	}
	return scope, action, payload
}
