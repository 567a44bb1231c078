package backend

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// The in-memory store keeps documents as plain maps holding only nil, bool,
// int64, float64, string, time.Time, []interface{} and map[string]interface{},
// converted from structs using their firestore tags.

var (
	timeType      = reflect.TypeOf(time.Time{})
	transformType = reflect.TypeOf(arrayTransform{})
)

func encodeDocument(data interface{}) (map[string]interface{}, error) {
	v, err := encodeValue(reflect.ValueOf(data))
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("backend: document data must be a struct or map, got %T", data)
	}
	return m, nil
}

func encodeValue(v reflect.Value) (interface{}, error) {
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Type() {
	case timeType:
		return v.Interface().(time.Time), nil
	case transformType:
		return nil, fmt.Errorf("backend: array transforms are only valid in updates")
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return nil, nil
		}
		return encodeValue(v.Elem())
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		fallthrough
	case reflect.Array:
		out := make([]interface{}, v.Len())
		for i := range out {
			e, err := encodeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("backend: map keys must be strings, got %s", v.Type().Key())
		}
		if v.IsNil() {
			return nil, nil
		}
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			e, err := encodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = e
		}
		return out, nil
	case reflect.Struct:
		out := make(map[string]interface{})
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name, omitEmpty, skip := fieldTag(f)
			if skip {
				continue
			}
			fv := v.Field(i)
			if omitEmpty && isEmptyValue(fv) {
				continue
			}
			e, err := encodeValue(fv)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			out[name] = e
		}
		return out, nil
	}
	return nil, fmt.Errorf("backend: cannot store value of type %s", v.Type())
}

func fieldTag(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("firestore")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = f.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(time.Time).IsZero()
		}
	}
	return false
}

func decodeDocument(data map[string]interface{}, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("backend: DataTo needs a non-nil pointer, got %T", dst)
	}
	return decodeValue(rv.Elem(), data)
}

func decodeValue(dst reflect.Value, src interface{}) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Type() == timeType {
		t, ok := src.(time.Time)
		if !ok {
			return mismatch(dst, src)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dst.Kind() {
	case reflect.Ptr:
		elem := reflect.New(dst.Type().Elem())
		if err := decodeValue(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return mismatch(dst, src)
		}
		dst.Set(reflect.ValueOf(cloneValue(src)))
	case reflect.Bool:
		b, ok := src.(bool)
		if !ok {
			return mismatch(dst, src)
		}
		dst.SetBool(b)
	case reflect.String:
		s, ok := src.(string)
		if !ok {
			return mismatch(dst, src)
		}
		dst.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch n := src.(type) {
		case int64:
			dst.SetInt(n)
		case float64:
			dst.SetInt(int64(n))
		default:
			return mismatch(dst, src)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := src.(int64)
		if !ok || n < 0 {
			return mismatch(dst, src)
		}
		dst.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		switch n := src.(type) {
		case int64:
			dst.SetFloat(float64(n))
		case float64:
			dst.SetFloat(n)
		default:
			return mismatch(dst, src)
		}
	case reflect.Slice:
		arr, ok := src.([]interface{})
		if !ok {
			return mismatch(dst, src)
		}
		out := reflect.MakeSlice(dst.Type(), len(arr), len(arr))
		for i, e := range arr {
			if err := decodeValue(out.Index(i), e); err != nil {
				return err
			}
		}
		dst.Set(out)
	case reflect.Map:
		m, ok := src.(map[string]interface{})
		if !ok || dst.Type().Key().Kind() != reflect.String {
			return mismatch(dst, src)
		}
		out := reflect.MakeMapWithSize(dst.Type(), len(m))
		for k, e := range m {
			ev := reflect.New(dst.Type().Elem()).Elem()
			if err := decodeValue(ev, e); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(dst.Type().Key()), ev)
		}
		dst.Set(out)
	case reflect.Struct:
		m, ok := src.(map[string]interface{})
		if !ok {
			return mismatch(dst, src)
		}
		t := dst.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name, _, skip := fieldTag(f)
			if skip {
				continue
			}
			if e, ok := m[name]; ok {
				if err := decodeValue(dst.Field(i), e); err != nil {
					return fmt.Errorf("field %s: %w", name, err)
				}
			}
		}
	default:
		return mismatch(dst, src)
	}
	return nil
}

func mismatch(dst reflect.Value, src interface{}) error {
	return fmt.Errorf("backend: cannot decode %T into %s", src, dst.Type())
}

func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]interface{}:
		return cloneMap(x)
	}
	return v
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func equalValues(a, b interface{}) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []interface{}:
		y, ok := b.([]interface{})
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equalValues(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		y, ok := b.(map[string]interface{})
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !equalValues(v, w) {
				return false
			}
		}
		return true
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
		return false
	}
	return a == b
}

// typeOrder follows the document database's cross-type ordering.
func typeOrder(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	case []interface{}:
		return 5
	}
	return 6
}

func compareValues(a, b interface{}) int {
	ta, tb := typeOrder(a), typeOrder(b)
	if ta != tb {
		return ta - tb
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int64, float64:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case time.Time:
		y := b.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// applyUpdates mutates data in place. Dotted paths address nested maps.
func applyUpdates(data map[string]interface{}, updates []Update) error {
	for _, u := range updates {
		if u.Path == "" {
			return fmt.Errorf("backend: empty update path")
		}
		segs := strings.Split(u.Path, ".")
		target := data
		for _, s := range segs[:len(segs)-1] {
			next, ok := target[s].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				target[s] = next
			}
			target = next
		}
		field := segs[len(segs)-1]

		if t, ok := u.Value.(arrayTransform); ok {
			current, _ := target[field].([]interface{})
			result := append([]interface{}(nil), current...)
			for _, raw := range t.values {
				val, err := encodeValue(reflect.ValueOf(raw))
				if err != nil {
					return err
				}
				if t.union {
					if !containsValue(result, val) {
						result = append(result, val)
					}
					continue
				}
				kept := result[:0]
				for _, e := range result {
					if !equalValues(e, val) {
						kept = append(kept, e)
					}
				}
				result = kept
			}
			if result == nil {
				result = []interface{}{}
			}
			target[field] = result
			continue
		}

		val, err := encodeValue(reflect.ValueOf(u.Value))
		if err != nil {
			return err
		}
		target[field] = val
	}
	return nil
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, e := range list {
		if equalValues(e, v) {
			return true
		}
	}
	return false
}

func lookupField(data map[string]interface{}, path string) (interface{}, bool) {
	segs := strings.Split(path, ".")
	var cur interface{} = data
	for _, s := range segs {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[s]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
