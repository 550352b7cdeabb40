package models

import (
	"time"
)

// Helpers for decoding document-store maps. The store round-trips documents
// through JSON, so numbers come back as float64 and timestamps as RFC3339
// strings regardless of what was written.

func docString(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func docInt(doc map[string]interface{}, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func docStringSlice(doc map[string]interface{}, key string) []string {
	raw, ok := doc[key].([]interface{})
	if !ok {
		// Already typed (e.g., written in-process and read back before a
		// JSON round trip).
		if typed, ok := doc[key].([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func docTime(doc map[string]interface{}, key string) time.Time {
	switch v := doc[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	case time.Time:
		return v
	}
	return time.Time{}
}

func docMap(doc map[string]interface{}, key string) map[string]interface{} {
	if v, ok := doc[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
