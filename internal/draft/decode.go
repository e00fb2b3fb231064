package draft

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// Decode parses a JSON object into a Section. Numbers keep their literal text
// as json.Number and trailing data after the object is an error.
//
// Shape is decided by position. Top-level objects are sections and the
// objects inside a top-level array are entries; neither is ever read as a
// Leaf, and a scalar "confidence" key directly inside one is dropped.
// Below that, an object holding a "value" or "confidence" key is a Leaf and
// its other keys are ignored. A bare scalar becomes a Leaf with no
// confidence (NaN) so Repair can tell it apart from a reported one.
func Decode(data []byte) (Section, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level object")
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level value is %s, want object", jsonKind(raw))
	}
	out := make(Section, len(obj))
	for k, v := range obj {
		out[k] = toContainer(v)
	}
	return out, nil
}

// toContainer decodes a section or a list of entries.
func toContainer(v any) Node {
	switch t := v.(type) {
	case map[string]any:
		out := make(Section, len(t))
		for k, c := range t {
			if k == constants.KeyConfidence && !isComposite(c) {
				continue
			}
			out[k] = toNode(c)
		}
		return out
	case []any:
		out := make(List, len(t))
		for i, e := range t {
			if _, ok := e.(map[string]any); ok {
				out[i] = toContainer(e)
			} else {
				out[i] = toNode(e)
			}
		}
		return out
	default:
		return toNode(v)
	}
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func toNode(v any) Node {
	switch t := v.(type) {
	case map[string]any:
		_, hasValue := t[constants.KeyValue]
		_, hasConf := t[constants.KeyConfidence]
		if (hasValue || hasConf) && !hasNestedFields(t) {
			return Leaf{Value: t[constants.KeyValue], Confidence: toConfidence(t[constants.KeyConfidence])}
		}
		return toContainer(t)
	case []any:
		out := make(List, len(t))
		for i, e := range t {
			out[i] = toNode(e)
		}
		return out
	default:
		return Leaf{Value: t, Confidence: math.NaN()}
	}
}

// hasNestedFields reports whether an object carries objects or arrays besides
// its value, which makes it a section with a stray key rather than a field.
func hasNestedFields(m map[string]any) bool {
	for k, v := range m {
		if k != constants.KeyValue && isComposite(v) {
			return true
		}
	}
	return false
}

// toConfidence returns NaN for anything that is not a JSON number.
func toConfidence(v any) float64 {
	n, ok := v.(json.Number)
	if !ok {
		return math.NaN()
	}
	f, err := n.Float64()
	if err != nil {
		return math.NaN()
	}
	return f
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
