package mturk

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Params holds the caller supplied operation parameters. Values are either
// scalars or ordered sequences (any slice or array other than []byte).
type Params map[string]any

// Set stores a scalar (or sequence) value under key.
func (p Params) Set(key string, value any) Params {
	p[key] = value
	return p
}

// Add appends values to the sequence stored under key. A scalar already
// stored under key becomes the first element.
func (p Params) Add(key string, values ...any) Params {
	existing, ok := p[key]
	var seq []any
	if ok {
		if isSequence(existing) {
			rv := reflect.ValueOf(existing)
			for i := 0; i < rv.Len(); i++ {
				seq = append(seq, rv.Index(i).Interface())
			}
		} else {
			seq = append(seq, existing)
		}
	}
	p[key] = append(seq, values...)
	return p
}

// Flatten converts params into the flat key/value form sent on the wire.
// Scalars keep their key. Element i of a sequence is sent as "key.{i+1}.{i}",
// the indexed-list convention the Requester API expects. Keys are visited in
// sorted order with sequences expanded before scalars, so a scalar whose key
// collides with a flattened element always wins.
func Flatten(params Params) map[string]string {
	out := make(map[string]string, len(params))

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := params[key]
		if !isSequence(value) {
			continue
		}
		rv := reflect.ValueOf(value)
		for i := 0; i < rv.Len(); i++ {
			flatKey := key + "." + strconv.Itoa(i+1) + "." + strconv.Itoa(i)
			out[flatKey] = scalarString(rv.Index(i).Interface())
		}
	}

	for _, key := range keys {
		if value := params[key]; !isSequence(value) {
			out[key] = scalarString(value)
		}
	}

	return out
}

func isSequence(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.([]byte); ok {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return FormatTimestamp(v)
	case time.Duration:
		// durations are sent as whole seconds
		return strconv.FormatInt(int64(v/time.Second), 10)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
