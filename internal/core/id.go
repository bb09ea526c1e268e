package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a record identifier as it appears on the wire. Upstream services
// emit either JSON numbers or JSON strings, so the kind is kept next to the
// text and both take part in strict comparison. Any other JSON value is an
// opaque ID compared by its JSON text.
type ID struct {
	raw     string
	numeric bool
	opaque  bool
	num     float64
}

// StringID returns an ID that was sent as a JSON string.
func StringID(s string) ID {
	return ID{raw: s}
}

// NumericID returns an ID that was sent as a JSON number.
func NumericID(n float64) ID {
	return ID{raw: strconv.FormatFloat(n, 'f', -1, 64), numeric: true, num: n}
}

// IDFromText rebuilds an ID from its stored text and kind. A numeric ID
// whose text does not parse falls back to a string ID.
func IDFromText(raw string, numeric bool) ID {
	if !numeric {
		return StringID(raw)
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return StringID(raw)
	}
	return NumericID(n)
}

// String returns the textual form used in markup and URLs.
func (id ID) String() string { return id.raw }

// IsNumeric reports whether the ID was a JSON number.
func (id ID) IsNumeric() bool { return id.numeric }

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id.raw == "" && !id.numeric && !id.opaque }

// Equal is strict: text and kind must both match.
func (id ID) Equal(other ID) bool {
	if id.numeric != other.numeric || id.opaque != other.opaque {
		return false
	}
	if id.numeric {
		return id.num == other.num
	}
	return id.raw == other.raw
}

// LooseEqual compares the ID with a raw string the way a coercing equality
// does: string IDs compare by text, numeric IDs compare by the numeric
// value of the trimmed string (an empty string counts as zero).
func (id ID) LooseEqual(s string) bool {
	if !id.numeric {
		return id.raw == s
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return id.num == 0
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return false
	}
	return n == id.num
}

// MarshalJSON writes the ID back with its original JSON kind.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric || id.opaque {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

// UnmarshalJSON accepts any JSON value; null is the zero ID.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ID{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*id = ID{raw: string(b), opaque: true}
		return nil
	}
	*id = NumericID(n)
	return nil
}
