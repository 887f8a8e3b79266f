package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nomina-core/internal/shared/apperror"
)

// ErrNotCanonicalizable wraps any value that cannot be serialized
// deterministically (channels, funcs, NaN floats, cyclic structures).
var ErrNotCanonicalizable = apperror.New(
	apperror.CodeSerialization,
	"value cannot be canonically serialized",
	http.StatusInternalServerError,
)

// Canonicalize renders v as deterministic JSON: object keys sorted,
// decimals rendered as plain fixed-point strings, times as RFC3339 UTC.
// The same logical content always yields the same bytes, so digests stay
// stable across serialization library or field-order changes.
func Canonicalize(v any) ([]byte, error) {
	node, err := normalize(reflect.ValueOf(v), 0)
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(node)
	if err != nil {
		return nil, ErrNotCanonicalizable.WithErr(err)
	}
	return buf, nil
}

// Hash returns the full hex SHA-256 digest of canonical bytes. No truncation.
func Hash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// HashValue canonicalizes v and hashes the result.
func HashValue(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return Hash(canonical), nil
}

// Verify recomputes the digest of v and compares it to expected in
// constant time.
func Verify(v any, expected string) (bool, error) {
	actual, err := HashValue(v)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1, nil
}

// VerifyBytes compares a digest against already-canonical bytes.
func VerifyBytes(canonical []byte, expected string) bool {
	actual := Hash(canonical)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}

const maxDepth = 32

// normalize converts v into a tree of json.Marshal-stable values:
// map[string]any with sorted emission (json.Marshal sorts map keys),
// []any, string, bool, json.Number, nil.
func normalize(rv reflect.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, ErrNotCanonicalizable.WithErr(fmt.Errorf("nesting deeper than %d levels", maxDepth))
	}

	if !rv.IsValid() {
		return nil, nil
	}

	// Domain-significant concrete types first.
	switch val := rv.Interface().(type) {
	case decimal.Decimal:
		// Fixed formatting: decimals always compare and hash by their
		// plain string form, 1.10 and 1.1 normalize identically.
		return json.RawMessage(strconv.Quote(val.String())), nil
	case *decimal.Decimal:
		if val == nil {
			return nil, nil
		}
		return json.RawMessage(strconv.Quote(val.String())), nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		return val.UTC().Format(time.RFC3339Nano), nil
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return nil, ErrNotCanonicalizable.WithErr(err)
		}
		return normalize(reflect.ValueOf(decoded), depth+1)
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem(), depth+1)

	case reflect.String:
		return rv.String(), nil

	case reflect.Bool:
		return rv.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return json.Number(strconv.FormatInt(rv.Int(), 10)), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return json.Number(strconv.FormatUint(rv.Uint(), 10)), nil

	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, ErrNotCanonicalizable.WithErr(fmt.Errorf("non-finite float %v", f))
		}
		return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}, nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			child, err := normalize(rv.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, ErrNotCanonicalizable.WithErr(fmt.Errorf("map key type %s is not string", rv.Type().Key()))
		}
		out := make(map[string]any, rv.Len())
		for _, key := range rv.MapKeys() {
			child, err := normalize(rv.MapIndex(key), depth+1)
			if err != nil {
				return nil, err
			}
			out[key.String()] = child
		}
		return out, nil

	case reflect.Struct:
		out := make(map[string]any)
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue // unexported
			}
			name, skip := jsonFieldName(field)
			if skip {
				continue
			}
			child, err := normalize(rv.Field(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[name] = child
		}
		return out, nil

	default:
		return nil, ErrNotCanonicalizable.WithErr(fmt.Errorf("unsupported kind %s", rv.Kind()))
	}
}

func jsonFieldName(field reflect.StructField) (name string, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name = field.Name
	if tag != "" {
		if tagName := strings.SplitN(tag, ",", 2)[0]; tagName != "" {
			name = tagName
		}
	}
	return name, false
}
