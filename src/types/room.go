package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrBadRoomID is returned when a room identifier is neither a JSON string
// nor a JSON number.
var ErrBadRoomID = errors.New("room id must be a string or a number")

// RoomID is a client supplied room identifier. It keeps the raw JSON so it
// can be echoed back exactly as received.
type RoomID struct {
	raw   json.RawMessage
	key   string
	str   string
	num   float64
	isNum bool
}

// StringRoom builds a string room identifier.
func StringRoom(s string) RoomID {
	raw, _ := json.Marshal(s)
	return RoomID{raw: raw, key: "s:" + s, str: s}
}

// NumberRoom builds a numeric room identifier.
func NumberRoom(n int64) RoomID {
	raw := []byte(strconv.FormatInt(n, 10))
	return RoomID{raw: raw, key: "n:" + canonicalNumber(float64(n)), num: float64(n), isNum: true}
}

// ParseRoomID decodes a raw JSON value into a RoomID.
func ParseRoomID(raw json.RawMessage) (RoomID, error) {
	var r RoomID
	if err := r.UnmarshalJSON(raw); err != nil {
		return RoomID{}, err
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RoomID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrBadRoomID
	}
	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrBadRoomID, err)
		}
		*r = RoomID{raw: append(json.RawMessage(nil), data...), key: "s:" + s, str: s}
		return nil
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadRoomID, err)
		}
		*r = RoomID{raw: append(json.RawMessage(nil), data...), key: "n:" + canonicalNumber(f), num: f, isNum: true}
		return nil
	default:
		return ErrBadRoomID
	}
}

// MarshalJSON echoes the identifier as it was received.
func (r RoomID) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// Key is the membership index key. Strings and numbers never collide and
// numbers compare by value, so 42 and 42.0 address the same room.
func (r RoomID) Key() string { return r.key }

// IsZero reports whether the identifier was never set.
func (r RoomID) IsZero() bool { return r.key == "" }

// Truthy is false for the empty string and the number zero.
func (r RoomID) Truthy() bool {
	if r.IsZero() {
		return false
	}
	if r.isNum {
		return r.num != 0
	}
	return r.str != ""
}

// String returns the identifier without JSON quoting.
func (r RoomID) String() string {
	if r.isNum {
		return canonicalNumber(r.num)
	}
	return r.str
}

// Int64 converts the identifier to the integer key used by the stores.
// Numeric strings such as "42" are accepted.
func (r RoomID) Int64() (int64, error) {
	if r.isNum {
		// Integer literals parse exactly, including those past 2^53.
		if n, err := strconv.ParseInt(string(r.raw), 10, 64); err == nil {
			return n, nil
		}
		if r.num != math.Trunc(r.num) || math.IsInf(r.num, 0) {
			return 0, fmt.Errorf("room id %s is not an integer", r.String())
		}
		if r.num < -(1<<63) || r.num >= 1<<63 {
			return 0, fmt.Errorf("room id %s is out of range", r.String())
		}
		return int64(r.num), nil
	}
	n, err := strconv.ParseInt(r.str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("room id %q is not an integer", r.str)
	}
	return n, nil
}

func canonicalNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
