// Package rubric decodes grading rubrics from JSON text, annotates criteria
// with grading verdicts, and re-encodes them without disturbing key order or
// untouched fields.
package rubric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MalformedRubricError reports a rubric payload that could not be decoded.
type MalformedRubricError struct {
	Reason string
}

func (e *MalformedRubricError) Error() string {
	return "rubric: " + e.Reason
}

// Rubric is an ordered mapping from criterion key to criterion value. Values
// are usually objects but any JSON value is preserved; only object values
// can be annotated.
type Rubric struct {
	entries *orderedmap.OrderedMap[string, any]
}

// Decode parses rubric JSON. It fails with MalformedRubricError when the
// text is blank, not valid JSON, or not a JSON object at the top level.
// There is no partial decode.
func Decode(text string) (*Rubric, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &MalformedRubricError{Reason: "empty rubric payload"}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &MalformedRubricError{Reason: fmt.Sprintf("parse failed: %v", err)}
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, &MalformedRubricError{Reason: fmt.Sprintf("top-level value is %s, not an object", tokenKind(tok))}
	}

	entries, err := decodeObject(dec)
	if err != nil {
		return nil, &MalformedRubricError{Reason: fmt.Sprintf("parse failed: %v", err)}
	}
	if dec.More() {
		return nil, &MalformedRubricError{Reason: "trailing data after object"}
	}
	return &Rubric{entries: entries}, nil
}

// Encode serializes the rubric back to JSON text. Key order is preserved,
// numbers are written exactly as read, and HTML characters and non-ASCII
// text are left unescaped to match the upstream store format.
func (r *Rubric) Encode() (string, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, r.entries); err != nil {
		return "", fmt.Errorf("rubric: encode: %w", err)
	}
	return buf.String(), nil
}

// Annotate sets autorating and reason on the criterion at key. It applies
// only when the key exists and its value is an object; unknown keys and
// non-object values are ignored and reported via the return value. Existing
// fields keep their position; new fields append.
func (r *Rubric) Annotate(key string, autorating bool, reason string) bool {
	v, ok := r.entries.Get(key)
	if !ok {
		return false
	}
	obj, ok := v.(*orderedmap.OrderedMap[string, any])
	if !ok {
		return false
	}
	obj.Set("autorating", autorating)
	obj.Set("reason", reason)
	return true
}

// Len returns the number of criterion keys.
func (r *Rubric) Len() int {
	return r.entries.Len()
}

// Keys returns the criterion keys in rubric order.
func (r *Rubric) Keys() []string {
	keys := make([]string, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Value returns the raw value stored at key.
func (r *Rubric) Value(key string) (any, bool) {
	return r.entries.Get(key)
}

// Criterion returns a typed view over the object value at key. The second
// return is false when the key is absent or the value is not an object.
func (r *Rubric) Criterion(key string) (*Criterion, bool) {
	v, ok := r.entries.Get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*orderedmap.OrderedMap[string, any])
	if !ok {
		return nil, false
	}
	return &Criterion{fields: obj}, true
}

// Criterion is a read view over one object-valued rubric entry.
type Criterion struct {
	fields *orderedmap.OrderedMap[string, any]
}

// Description returns the description field, or "" when absent.
func (c *Criterion) Description() string {
	return c.stringField("description")
}

// Weight returns the weight tag, or "" when absent.
func (c *Criterion) Weight() string {
	return c.stringField("weight")
}

// Reason returns the grading reason and whether it has been set.
func (c *Criterion) Reason() (string, bool) {
	v, ok := c.fields.Get("reason")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Autorating returns the grading verdict and whether it has been set.
func (c *Criterion) Autorating() (bool, bool) {
	v, ok := c.fields.Get("autorating")
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// CriterionTypes returns the criterion_type tags, or nil when absent.
func (c *Criterion) CriterionTypes() []string {
	v, ok := c.fields.Get("criterion_type")
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

func (c *Criterion) stringField(name string) string {
	v, ok := c.fields.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// decodeObject consumes members until the closing brace. The opening brace
// token must already be consumed.
func decodeObject(dec *json.Decoder) (*orderedmap.OrderedMap[string, any], error) {
	obj := orderedmap.New[string, any]()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			return obj, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %v", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, value)
	}
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	items := []any{}
	for {
		if !dec.More() {
			// consume closing bracket
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return items, nil
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); ok {
		switch delim {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", delim)
		}
	}
	return tok, nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(val.String())
	case string:
		return encodeString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *orderedmap.OrderedMap[string, any]:
		buf.WriteByte('{')
		first := true
		for pair := val.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteString(", ")
			}
			first = false
			if err := encodeString(buf, pair.Key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := encodeValue(buf, pair.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// encodeString writes s as a JSON string without HTML escaping.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

func tokenKind(tok json.Token) string {
	switch t := tok.(type) {
	case json.Delim:
		if t == '[' {
			return "an array"
		}
		return fmt.Sprintf("%q", t.String())
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", tok)
	}
}
