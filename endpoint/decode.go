package endpoint

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// defaultFieldLimit is the maximum byte length of a decoded value when the
// field carries no maxLength tag.
//
// This is a var (not const) so tests/callers can override it if needed.
var defaultFieldLimit = 16 * 1024 // 16KB

// Unmarshal populates dst (must be a non-nil pointer) from the request.
//
// Supported sources:
//   - request body: r.Body (via `body` tag)
//   - headers: r.Header (via `header` tag)
//
// Supported structtags:
//   - `body:"[name][,flag]"`
//   - `header:"name[,flag]"`
//   - `body:"-"` or `header:"-"` to ignore the field entirely
//   - `maxLength:"n"` to set the maximum byte length for a field value
//
// Where:
//   - name: header name; if empty, defaults to the struct field name. The
//     name of a body tag is ignored.
//   - flag: []byte decoding (base64 | base64url) or json
//
// Notes:
//   - A body field of type string or []byte receives the raw body. Any other
//     type defaults to JSON decoding and requires a JSON Content-Type (415
//     otherwise).
//   - Slice-typed header fields receive one element per header value.
//   - At most one field may be tagged `body`.
//   - If no data is present for a field, it is left unchanged.
//   - Untagged fields are ignored.
//
// Length constraints:
//   - If a value exceeds its limit, Unmarshal returns a 400 Bad Request error
//     (413 for the body). If `maxLength` is absent, a default limit of 16KB is
//     enforced. Use `maxLength:"0"` or `maxLength:""` for no limit.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}

	// Support *P where P may be a struct or pointer-to-struct.
	root := v.Elem()
	if root.Kind() == reflect.Pointer {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct (or pointer to struct)"))
	}

	return unmarshalStruct(r, root)
}

// MediaType returns the lower-cased media type of the request body, without
// parameters, or "" when no Content-Type is set.
func MediaType(r *http.Request) string {
	if r == nil {
		return ""
	}
	ct := strings.TrimSpace(r.Header.Get("Content-Type"))
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		// If malformed, return the raw (lowercased) content-type.
		return strings.ToLower(ct)
	}
	return strings.ToLower(mt)
}

func requestBodyIsJSON(r *http.Request) bool {
	mt := MediaType(r)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

type sourceTag struct {
	Source    string
	Name      string
	Encoding  string
	MaxLength int
}

func unmarshalStruct(r *http.Request, structVal reflect.Value) error {
	t := structVal.Type()
	bodyFieldIndex := -1
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		fv := structVal.Field(i)

		bodyTag, hasBody, err := parseSourceTag(sf, "body", sf.Name)
		if err != nil {
			return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}
		headerTag, hasHeader, err := parseSourceTag(sf, "header", sf.Name)
		if err != nil {
			return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}
		if (hasBody && bodyTag.Name == "-") || (hasHeader && headerTag.Name == "-") {
			continue
		}

		if hasBody {
			if bodyFieldIndex != -1 {
				return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: multiple body fields: %s and %s", t.Field(bodyFieldIndex).Name, sf.Name))
			}
			bodyFieldIndex = i
		}

		limit, err := fieldLengthLimit(sf)
		if err != nil {
			return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}
		bodyTag.MaxLength = limit
		headerTag.MaxLength = limit

		// Body default: for non-string/[]byte fields, default to JSON decoding.
		if hasBody && bodyTag.Encoding == "" {
			ft := fv.Type()
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			isStringOrBytes := ft.Kind() == reflect.String || (ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8)
			if !isStringOrBytes {
				bodyTag.Encoding = "json"
			}
		}

		if hasBody {
			ok, err := setFieldFromSource(fv, bodyTag, fetchRequestBody(r, bodyTag), sf.Name)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
		}
		if hasHeader {
			if _, err := setFieldFromSource(fv, headerTag, fetchHeaderValue(r), sf.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func fetchRequestBody(r *http.Request, tag sourceTag) func(name string) ([][]byte, bool, error) {
	return func(_ string) ([][]byte, bool, error) {
		if r.Body == nil || r.Body == http.NoBody {
			return nil, false, nil
		}

		// If explicit JSON encoding is requested (or defaulted for non-string/byte types),
		// require JSON content-type.
		if tag.Encoding == "json" && !requestBodyIsJSON(r) {
			mt := MediaType(r)
			if mt == "" {
				mt = "(missing)"
			}
			return nil, false, Error(http.StatusUnsupportedMediaType, "", fmt.Errorf("endpoint: decode: body: unsupported media type %s", mt))
		}

		// Read one byte past the limit so oversized bodies are detected
		// without buffering them whole.
		var src io.Reader = r.Body
		if tag.MaxLength > 0 {
			src = io.LimitReader(r.Body, int64(tag.MaxLength)+1)
		}
		b, err := io.ReadAll(src)
		if err != nil {
			return nil, false, Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
		}
		if tag.MaxLength > 0 && len(b) > tag.MaxLength {
			return nil, false, Error(http.StatusRequestEntityTooLarge, "", fmt.Errorf("endpoint: decode: body: exceeds max length %d", tag.MaxLength))
		}
		return [][]byte{b}, true, nil
	}
}

func fetchHeaderValue(r *http.Request) func(name string) ([][]byte, bool, error) {
	return func(name string) ([][]byte, bool, error) {
		vs := r.Header.Values(name)
		if len(vs) == 0 {
			return nil, false, nil
		}
		out := make([][]byte, len(vs))
		for i, s := range vs {
			out[i] = []byte(s)
		}
		return out, true, nil
	}
}

func fieldLengthLimit(sf reflect.StructField) (int, error) {
	val, has := sf.Tag.Lookup("maxLength")
	if !has {
		return defaultFieldLimit, nil
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("maxLength: invalid integer %q", val)
	}
	if n < 0 {
		return 0, errors.New("maxLength: must be >= 0")
	}
	return n, nil
}

func parseSourceTag(sf reflect.StructField, tagKey string, defaultName string) (cfg sourceTag, has bool, err error) {
	val, has := sf.Tag.Lookup(tagKey)
	if !has {
		return sourceTag{}, false, nil
	}

	parts := strings.Split(val, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		name = defaultName
	}

	cfg = sourceTag{Source: tagKey, Name: name, MaxLength: defaultFieldLimit}
	for _, p := range parts[1:] {
		flag := strings.ToLower(strings.TrimSpace(p))
		switch flag {
		case "":
			continue
		case "base64", "base64url", "json":
			if cfg.Encoding != "" {
				return sourceTag{}, false, errors.New("multiple encoding flags")
			}
			cfg.Encoding = flag
		default:
			return sourceTag{}, false, fmt.Errorf("unknown %s tag flag %q", tagKey, flag)
		}
	}
	return cfg, true, nil
}

func setFieldFromSource(field reflect.Value, tag sourceTag, fetch func(name string) ([][]byte, bool, error), fieldName string) (bool, error) {
	raw, ok, err := fetch(tag.Name)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	for _, val := range raw {
		if tag.MaxLength > 0 && len(val) > tag.MaxLength {
			return false, Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: %s %q -> %s: value exceeds max length %d", tag.Source, tag.Name, fieldName, tag.MaxLength))
		}
	}

	if err := setFieldFromValues(field, raw, tag.Encoding); err != nil {
		return false, Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: %s %q -> %s: %w", tag.Source, tag.Name, fieldName, err))
	}
	return true, nil
}

func setFieldFromValues(v reflect.Value, values [][]byte, encodingFlag string) error {
	if len(values) == 0 {
		return nil
	}

	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}

	// A JSON payload may itself be an array, so json-flagged slices take the
	// first value whole.
	isByteSlice := v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
	if v.Kind() == reflect.Slice && !isByteSlice && encodingFlag != "json" {
		slice := reflect.MakeSlice(v.Type(), 0, len(values))
		for _, val := range values {
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := setFieldFromBytes(elem, val, encodingFlag); err != nil {
				return err
			}
			slice = reflect.Append(slice, elem)
		}
		v.Set(slice)
		return nil
	}

	return setFieldFromBytes(v, values[0], encodingFlag)
}

func setFieldFromBytes(v reflect.Value, b []byte, encodingFlag string) error {
	if !v.CanSet() || !v.CanAddr() {
		return errors.New("field is not settable")
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return setFieldFromBytes(v.Elem(), b, encodingFlag)
	}

	switch encodingFlag {
	case "json":
		return json.NewDecoder(bytes.NewReader(b)).Decode(v.Addr().Interface())
	case "base64", "base64url":
		if v.Kind() != reflect.Slice || v.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("encoding %q not supported for type %s", encodingFlag, v.Type())
		}
		enc := base64.StdEncoding
		if encodingFlag == "base64url" {
			enc = base64.RawURLEncoding
		}
		src := bytes.TrimSpace(b)
		out := make([]byte, enc.DecodedLen(len(src)))
		n, err := enc.Decode(out, src)
		if err != nil {
			return err
		}
		v.SetBytes(out[:n])
		return nil
	}

	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
		v.SetBytes(b)
		return nil
	}

	// Prefer the pointer receiver, as most custom types use one.
	if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
		return u.UnmarshalText(b)
	}

	s := string(b)
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
		return nil
	case reflect.Bool:
		bb, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(bb)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
		return nil
	}
	return fmt.Errorf("unsupported kind %s", v.Kind())
}
