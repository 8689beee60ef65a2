package metadata

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
)

// Kind discriminates Value
type Kind uint8

const (
	Null Kind = iota
	Scalar
	List
	Object
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case List:
		return "list"
	case Object:
		return "object"
	default:
		return "null"
	}
}

// Value is one metadata value: a scalar with its XSD datatype, a list of
// values, or a nested record.
type Value struct {
	Kind     Kind
	Text     string
	Datatype string
	Items    []Value
	Fields   Record
}

// Record is a metadata object keyed by property name
type Record map[string]Value

// Keys returns the record keys in sorted order
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Str builds a string scalar
func Str(s string) Value { return Value{Kind: Scalar, Text: s, Datatype: kg.XSDString} }

// Num builds a numeric scalar from its decimal text
func Num(s string) Value { return Value{Kind: Scalar, Text: s, Datatype: kg.InferDatatype(s)} }

// ListOf builds a list
func ListOf(items ...Value) Value { return Value{Kind: List, Items: items} }

// Obj builds a nested record
func Obj(r Record) Value { return Value{Kind: Object, Fields: r} }

// Elements flattens v into the scalars and records it carries. Nested lists
// are flattened and nulls are dropped.
func (v Value) Elements() []Value {
	switch v.Kind {
	case Scalar, Object:
		return []Value{v}
	case List:
		var out []Value
		for _, item := range v.Items {
			out = append(out, item.Elements()...)
		}
		return out
	default:
		return nil
	}
}

// Texts returns every scalar text reachable from v, in key order for records
func (v Value) Texts() []string {
	switch v.Kind {
	case Scalar:
		return []string{v.Text}
	case List:
		var out []string
		for _, item := range v.Items {
			out = append(out, item.Texts()...)
		}
		return out
	case Object:
		var out []string
		for _, k := range v.Fields.Keys() {
			out = append(out, v.Fields[k].Texts()...)
		}
		return out
	default:
		return nil
	}
}

// UnmarshalJSON decodes any JSON value. Numbers keep their original text.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return errors.Wrap(err, "decode metadata value")
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw any) Value {
	switch x := raw.(type) {
	case string:
		return Str(x)
	case json.Number:
		return Num(x.String())
	case bool:
		return Value{Kind: Scalar, Text: strconv.FormatBool(x), Datatype: kg.XSDBoolean}
	case []any:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			items = append(items, fromAny(item))
		}
		return ListOf(items...)
	case map[string]any:
		rec := make(Record, len(x))
		for k, item := range x {
			rec[k] = fromAny(item)
		}
		return Obj(rec)
	default:
		return Value{}
	}
}

// ParseRecords decodes a JSON object or an array of objects
func ParseRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.NewInvalidInputError("empty metadata document")
	}

	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	switch v.Kind {
	case Object:
		return []Record{v.Fields}, nil
	case List:
		records := make([]Record, 0, len(v.Items))
		for i, item := range v.Items {
			if item.Kind != Object {
				return nil, errors.NewInvalidInputError("metadata item %d is a %s, want object", i, item.Kind)
			}
			records = append(records, item.Fields)
		}
		return records, nil
	default:
		return nil, errors.NewInvalidInputError("metadata document is a %s, want object or array", v.Kind)
	}
}
