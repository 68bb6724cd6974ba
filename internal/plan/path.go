package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlattenElement is the symbolic path element that stands for "every element
// of the array at this position". It appears in plan paths only; hydrated
// response paths carry concrete indices instead.
const FlattenElement = "@"

// ResponsePath is an ordered sequence of path elements. Each element is a
// field response-name (string) or an array index (int); plan paths may also
// contain FlattenElement.
type ResponsePath []any

// Append returns a new path with elem added; the receiver is not modified.
func (p ResponsePath) Append(elem any) ResponsePath {
	next := make(ResponsePath, len(p)+1)
	copy(next, p)
	next[len(p)] = elem
	return next
}

// Concat returns a new path with all elements of tail added.
func (p ResponsePath) Concat(tail []any) ResponsePath {
	next := make(ResponsePath, 0, len(p)+len(tail))
	next = append(next, p...)
	next = append(next, tail...)
	return next
}

// WithoutFlatten returns the path with all FlattenElement entries removed.
func (p ResponsePath) WithoutFlatten() ResponsePath {
	out := make(ResponsePath, 0, len(p))
	for _, elem := range p {
		if elem == FlattenElement {
			continue
		}
		out = append(out, elem)
	}
	return out
}

func (p ResponsePath) String() string {
	var b strings.Builder
	for i, elem := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%v", elem)
	}
	return b.String()
}

// UnmarshalJSON decodes a plan path, normalizing JSON numbers to int.
func (p *ResponsePath) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ResponsePath, len(raw))
	for i, elem := range raw {
		switch v := elem.(type) {
		case string:
			out[i] = v
		case float64:
			out[i] = int(v)
		default:
			return fmt.Errorf("invalid path element %v", elem)
		}
	}
	*p = out
	return nil
}

// PathIndex normalizes a decoded path element to an array index. JSON decoding
// yields float64 for numbers; subgraph responses may also carry json.Number.
func PathIndex(elem any) (int, bool) {
	switch v := elem.(type) {
	case int:
		return v, v >= 0
	case float64:
		return int(v), v >= 0 && v == float64(int(v))
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil && n >= 0
	default:
		return 0, false
	}
}
