package weback

import "time"

// Envelope is a decoded vendor response: {"msg": ..., "data": {...}}.
type Envelope map[string]any

func (e Envelope) Msg() string {
	msg, _ := e["msg"].(string)
	return msg
}

func (e Envelope) Data() map[string]any {
	data, _ := e["data"].(map[string]any)
	return data
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func secondsField(m map[string]any, key string) (time.Duration, bool) {
	switch v := m[key].(type) {
	case float64:
		return time.Duration(v * float64(time.Second)), true
	case int:
		return time.Duration(v) * time.Second, true
	case int64:
		return time.Duration(v) * time.Second, true
	default:
		return 0, false
	}
}
