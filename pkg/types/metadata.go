package types

import (
	"strconv"
	"time"
)

// Well-known metadata keys.
const (
	MetaDetail    = "detail"
	MetaDue       = "due"
	MetaFinished  = "is_finished"
	MetaStart     = "start"
	MetaEnd       = "end"
	MetaLocation  = "location"
	MetaSubTitle  = "sub_title"
	MetaEventType = "event_type"
)

// Metadata is the open key/value bag carried by every entity. Kind-specific
// fields such as an assignment's due time live here, stored as strings.
type Metadata map[string]string

// Get returns the value for key, or "" when absent.
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Time parses the RFC3339 value stored under key.
func (m Metadata) Time(key string) (time.Time, bool) {
	v := m.Get(key)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SetTime stores t as RFC3339, keeping its zone offset.
func (m Metadata) SetTime(key string, t time.Time) {
	m[key] = t.Format(time.RFC3339)
}

// Bool parses the value stored under key; absent or malformed values are false.
func (m Metadata) Bool(key string) bool {
	b, err := strconv.ParseBool(m.Get(key))
	return err == nil && b
}

// SetBool stores b as "true" or "false".
func (m Metadata) SetBool(key string, b bool) {
	m[key] = strconv.FormatBool(b)
}

// Clone returns a copy of m. A nil receiver yields an empty, non-nil map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
