package http

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Body is a request body. The set of variants is closed: Values, List, Raw,
// GraphQL and *FormData. A nil Body sends no payload.
type Body interface {
	isBody()
}

// Values is a structured key-value tree. Leaves may be scalars, nested maps,
// slices or File attachments.
type Values map[string]any

// List is a structured positional tree.
type List []any

// Raw bytes are sent unchanged whatever the content type.
type Raw []byte

// GraphQL is a single raw query document sent as-is.
type GraphQL string

func (Values) isBody()    {}
func (List) isBody()      {}
func (Raw) isBody()       {}
func (GraphQL) isBody()   {}
func (*FormData) isBody() {}

// File is a path attachment placed as a leaf inside Values or List. It only
// has meaning for form and multipart bodies.
type File struct {
	Path     string
	Filename string
	MimeType string
}

// KeyValue is one flattened form pair.
type KeyValue struct {
	Key   string
	Value string
}

type fileLeaf struct {
	key  string
	file File
}

type flattened struct {
	pairs []KeyValue
	files []fileLeaf
}

// Flatten converts a nested tree into bracket-notated pairs: {"a": {"b": 1}}
// becomes a[b]=1 and slice elements use their index as the key. Map keys are
// visited in sorted order.
func Flatten(v any) ([]KeyValue, error) {
	var out flattened
	if err := flattenInto(&out, "", reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	if len(out.files) > 0 {
		return nil, fmt.Errorf("file attachment %q cannot be flattened into key-value pairs", out.files[0].key)
	}
	return out.pairs, nil
}

func flattenTree(v any) (flattened, error) {
	var out flattened
	err := flattenInto(&out, "", reflect.ValueOf(v))
	return out, err
}

var fileType = reflect.TypeOf(File{})

func flattenInto(out *flattened, prefix string, v reflect.Value) error {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			v = reflect.Value{}
			break
		}
		v = v.Elem()
	}

	if v.IsValid() && v.Type() == fileType {
		if prefix == "" {
			return fmt.Errorf("file attachment needs a field name")
		}
		out.files = append(out.files, fileLeaf{key: prefix, file: v.Interface().(File)})
		return nil
	}

	if v.IsValid() {
		switch v.Kind() {
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return fmt.Errorf("unsupported map key type %s", v.Type().Key())
			}
			keys := make([]string, 0, v.Len())
			for _, k := range v.MapKeys() {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			for _, k := range keys {
				val := v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key()))
				if err := flattenInto(out, joinKey(prefix, k), val); err != nil {
					return err
				}
			}
			return nil
		case reflect.Slice, reflect.Array:
			if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
				break
			}
			for i := 0; i < v.Len(); i++ {
				if err := flattenInto(out, joinKey(prefix, strconv.Itoa(i)), v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if prefix == "" {
		return fmt.Errorf("cannot flatten scalar %v without a key", v)
	}
	s, err := scalarString(v)
	if err != nil {
		return fmt.Errorf("field %q: %w", prefix, err)
	}
	out.pairs = append(out.pairs, KeyValue{Key: prefix, Value: s})
	return nil
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "[" + key + "]"
}

// scalarString renders a leaf the way form submissions expect: true is "1",
// false and nil are empty.
func scalarString(v reflect.Value) (string, error) {
	if !v.IsValid() {
		return "", nil
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		if v.Bool() {
			return "1", nil
		}
		return "", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	case reflect.Slice:
		// only byte slices reach here
		return string(v.Bytes()), nil
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String(), nil
	}
	return "", fmt.Errorf("unsupported value of type %s", v.Type())
}

// encodePairs URL-encodes pairs in order, spaces as '+'.
func encodePairs(pairs []KeyValue) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}
