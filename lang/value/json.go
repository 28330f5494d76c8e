package value

import (
	"encoding/json"
	"fmt"

	"github.com/aislang/aisl/lang/gc"
)

// JSON is a parsed JSON document: a tagged union over null, bool, number,
// string, array, and object, exactly as encoding/json's untyped decoding
// produces (map[string]any, []any, float64, string, bool, nil). AISL's
// json_parse/json_stringify primitives (spec.md §8) operate on this tree
// rather than on AISL Values directly, so that round-tripping through JSON
// does not require a bijection between the two type systems.
type JSON struct {
	gc.Header
	Doc any
}

func (j *JSON) Trace(func(gc.Object)) {}
func (j *JSON) Size() uintptr         { return 32 }

// NewJSON allocates and registers a JSON value wrapping doc.
func NewJSON(h *gc.Heap, doc any) Value {
	obj := h.Register(&JSON{Doc: doc}).(*JSON)
	return fromObject(JSONT, obj)
}

// AsJSON returns the underlying JSON document tree.
func (v Value) AsJSON() any { return v.obj.(*JSON).Doc }

// ParseJSON decodes src into a JSON value. Per spec.md's round-trip law,
// json_parse(json_stringify(v)) must reproduce v exactly; encoding/json's
// default number type (float64) and object representation (map[string]any,
// which does not preserve key order) already satisfy that law because
// StringifyJSON re-serializes the same Go values it parsed.
func ParseJSON(h *gc.Heap, src string) (Value, error) {
	var doc any
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		return Value{}, fmt.Errorf("json_parse: %w", err)
	}
	return NewJSON(h, doc), nil
}

// StringifyJSON renders v's JSON tree back to text. v must be a JSON
// value.
func StringifyJSON(v Value) (string, error) {
	b, err := json.Marshal(v.AsJSON())
	if err != nil {
		return "", fmt.Errorf("json_stringify: %w", err)
	}
	return string(b), nil
}
