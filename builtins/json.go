package builtins

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"tram/eval"
	"tram/types"
)

// builtinGenerateJson converts a value to a JSON string
// Signature: generate_json(value [, pretty]) → STR
// Map keys keep insertion order; non-string keys use their literal form.
func builtinGenerateJson(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "generate_json", args, 1, 2); err != nil {
		return nil, err
	}
	pretty := len(args) == 2 && args[1].Truthy()

	jsonValue, err := toJSON(p, args[0])
	if err != nil {
		return nil, err
	}

	var data []byte
	if pretty {
		data, err = json.MarshalIndent(jsonValue, "", "  ")
	} else {
		data, err = json.Marshal(jsonValue)
	}
	if err != nil {
		return nil, valueError(p, "generate_json(): %v", err)
	}
	return types.NewStr(string(data)), nil
}

// toJSON converts a value to a Go value suitable for JSON marshaling
func toJSON(p *eval.Processor, v types.Value) (interface{}, error) {
	switch val := v.(type) {
	case types.NullValue:
		return nil, nil

	case types.BoolValue:
		return val.Val, nil

	case types.IntValue:
		return val.Val, nil

	case types.FloatValue:
		if math.IsNaN(val.Val) || math.IsInf(val.Val, 0) {
			return nil, valueError(p, "generate_json(): %s is not valid JSON", val)
		}
		// Use json.Number to keep the decimal point of whole floats
		return json.Number(val.String()), nil

	case types.StrValue:
		return val.Value(), nil

	case types.ListValue, types.TupleValue:
		elems, _ := types.Elements(val)
		arr := make([]interface{}, len(elems))
		for i, elem := range elems {
			jsonElem, err := toJSON(p, elem)
			if err != nil {
				return nil, err
			}
			arr[i] = jsonElem
		}
		return arr, nil

	case types.MapValue:
		keys, values := val.Keys(), val.Values()
		om := &orderedMap{entries: make([]orderedMapEntry, len(keys))}
		for i, key := range keys {
			keyStr := key.String()
			if s, ok := key.(types.StrValue); ok {
				keyStr = s.Value()
			}
			jsonValue, err := toJSON(p, values[i])
			if err != nil {
				return nil, err
			}
			om.entries[i] = orderedMapEntry{key: keyStr, value: jsonValue}
		}
		return om, nil

	default:
		return nil, p.NewError(p.Classes.TypeError, types.Internal, "%s is not JSON serializable", p.TypeOf(v))
	}
}

// builtinParseJson parses a JSON string
// Signature: parse_json(string) → VALUE
// Objects become maps with keys in sorted order; integral numbers become ints.
func builtinParseJson(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "parse_json", args, 1, 1); err != nil {
		return nil, err
	}
	s, err := strArg(p, "parse_json", args, 0)
	if err != nil {
		return nil, err
	}

	var data interface{}
	decoder := json.NewDecoder(strings.NewReader(s))
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		return nil, valueError(p, "parse_json(): %v", err)
	}
	if decoder.More() {
		return nil, valueError(p, "parse_json(): trailing data after JSON value")
	}
	return fromJSON(data), nil
}

// fromJSON converts a decoded Go value to a runtime value
func fromJSON(v interface{}) types.Value {
	switch val := v.(type) {
	case nil:
		return types.Null

	case bool:
		return types.NewBool(val)

	case json.Number:
		if n, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return types.NewInt(n)
		}
		f, _ := val.Float64()
		return types.NewFloat(f)

	case string:
		return types.NewStr(val)

	case []interface{}:
		elements := make([]types.Value, len(val))
		for i, item := range val {
			elements[i] = fromJSON(item)
		}
		return types.NewList(elements)

	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([][2]types.Value, 0, len(val))
		for _, k := range keys {
			pairs = append(pairs, [2]types.Value{types.NewStr(k), fromJSON(val[k])})
		}
		return types.NewMapFromPairs(pairs)

	default:
		return types.NewStr(fmt.Sprint(val))
	}
}

// orderedMap preserves key order when marshaled to JSON
type orderedMapEntry struct {
	key   string
	value interface{}
}

type orderedMap struct {
	entries []orderedMapEntry
}

// MarshalJSON implements json.Marshaler for orderedMap
func (om *orderedMap) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, entry := range om.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(entry.key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(entry.value)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}
