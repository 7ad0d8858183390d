package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Color is a 24-bit RGB colour. In JSON it is a number or a hex string
// ("#ff4500", "0xff4500" or "ff4500").
type Color uint32

func (c *Color) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseColor(s)
		if err != nil {
			return err
		}
		*c = v
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 32)
	if err != nil || v > 0xffffff {
		return fmt.Errorf("color %s: want an integer up to 0xffffff or a hex string", data)
	}
	*c = Color(v)
	return nil
}

// ParseColor parses a hex colour string.
func ParseColor(s string) (Color, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(h, "#")
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if len(h) != 6 {
		return 0, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return Color(v), nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	*f = flexString(n.String())
	return nil
}

// endpoint is an edge end given as a node ID or a node index.
type endpoint struct {
	id      string
	index   int
	byIndex bool
}

func (e *endpoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.id = s
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("endpoint must be a node id or index")
	}
	if f < 0 || f != math.Trunc(f) {
		return fmt.Errorf("endpoint index %v is not a non-negative integer", f)
	}
	e.index, e.byIndex = int(f), true
	return nil
}

// resolve returns the node ID the endpoint names. An index past the end of
// the node list resolves to a placeholder that matches no node.
func (e endpoint) resolve(nodeIDs []string) string {
	if !e.byIndex {
		return e.id
	}
	if e.index < len(nodeIDs) {
		return nodeIDs[e.index]
	}
	return "#" + strconv.Itoa(e.index)
}

// vec is a position given as {"x":..,"y":..,"z":..} or [x, y, z].
type vec v3.Vec

func (v *vec) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) != 3 {
			return fmt.Errorf("position array needs 3 elements, got %d", len(arr))
		}
		*v = vec{X: arr[0], Y: arr[1], Z: arr[2]}
		return nil
	}
	var obj struct{ X, Y, Z float64 }
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("position must be an object or array")
	}
	*v = vec{X: obj.X, Y: obj.Y, Z: obj.Z}
	return nil
}
