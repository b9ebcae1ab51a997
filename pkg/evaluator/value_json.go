package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ValueToJSON marshals a Value to JSON bytes.
// Non-finite floats and functions have no JSON form and render as strings.
func ValueToJSON(v Value) ([]byte, error) {
	return encodeJSON(valueToRaw(v, nil))
}

// encodeJSON is json.Marshal without HTML escaping, so strings such as
// "<function f>" keep their angle brackets.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func valueToRaw(v Value, seen map[*List]bool) any {
	switch val := v.(type) {
	case nil, None:
		return nil

	case Bool:
		return val.Value

	case Int:
		return val.Value

	case Float:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return FormatFloat(val.Value)
		}
		return json.Number(FormatFloat(val.Value))

	case Str:
		return val.Value

	case *List:
		if seen[val] {
			return "[...]"
		}
		if seen == nil {
			seen = make(map[*List]bool)
		}
		seen[val] = true
		defer delete(seen, val)
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = valueToRaw(item, seen)
		}
		return items

	case *Func:
		return Render(val)
	}

	return nil
}

// SnapshotToJSON renders the root bindings of env as a JSON object with
// sorted keys.
func SnapshotToJSON(env *Env) ([]byte, error) {
	snap := env.Snapshot()
	raw := make(map[string]json.RawMessage, len(snap))
	for name, v := range snap {
		b, err := ValueToJSON(v)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		raw[name] = b
	}
	return encodeJSON(raw)
}

// EnvFromJSON builds an environment whose root holds the bindings of a JSON
// object. Integral numbers without a fraction or exponent become Int,
// other numbers Float, arrays List, null None. Objects are rejected.
func EnvFromJSON(data []byte) (*Env, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	env := NewEnv()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, err := rawToValue(raw[name])
		if err != nil {
			return nil, fmt.Errorf("environment: binding '%s': %w", name, err)
		}
		env.Define(nil, name, v)
	}
	return env, nil
}

func rawToValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return None{}, nil
	case bool:
		return Bool{Value: val}, nil
	case string:
		return Str{Value: val}, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int{Value: i}, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return Float{Value: f}, nil
	case float64:
		return Float{Value: val}, nil
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			iv, err := rawToValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = iv
		}
		return NewList(items...), nil
	}
	return nil, fmt.Errorf("unsupported JSON value of type %T", v)
}
