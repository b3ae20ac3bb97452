package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SimpleMapper is the default Mapper. It resolves method names by path
// convention against a Registry:
//
//	v1/device/ownCloud/getStatus -> group "API.V1.Device.OwnCloud", selector "getStatus"
//
// and binds positional or named arguments using each entry point's
// parameter table.
type SimpleMapper struct {
	registry  *Registry
	namespace string
	separator string
}

// MapperOption configures a SimpleMapper.
type MapperOption func(*SimpleMapper)

// WithNamespace sets the identifier prefix of every handler group. Leading
// and trailing dots are ignored; an empty namespace means no prefix.
func WithNamespace(namespace string) MapperOption {
	return func(m *SimpleMapper) {
		m.namespace = strings.Trim(namespace, ".")
	}
}

// WithSeparator sets the method name segment separator. It must be a single
// non-alphanumeric character.
func WithSeparator(separator string) MapperOption {
	return func(m *SimpleMapper) {
		m.separator = separator
	}
}

// NewMapper creates a SimpleMapper over reg. The defaults are
// DefaultNamespace and "/".
func NewMapper(reg *Registry, opts ...MapperOption) (*SimpleMapper, error) {
	if reg == nil {
		return nil, errors.New("dispatch: nil registry")
	}
	m := &SimpleMapper{
		registry:  reg,
		namespace: DefaultNamespace,
		separator: "/",
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := validSeparator(m.separator); err != nil {
		return nil, err
	}
	return m, nil
}

func validSeparator(sep string) error {
	if utf8.RuneCountInString(sep) != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidSeparator, sep)
	}
	r, _ := utf8.DecodeRuneInString(sep)
	if r == utf8.RuneError || unicode.IsLetter(r) || unicode.IsDigit(r) {
		return fmt.Errorf("%w: %q", ErrInvalidSeparator, sep)
	}
	return nil
}

// Namespace returns the configured namespace.
func (m *SimpleMapper) Namespace() string {
	return m.namespace
}

// Separator returns the configured separator.
func (m *SimpleMapper) Separator() string {
	return m.separator
}

// Split validates a method name and returns the fully-qualified handler
// group identifier and the selector.
func (m *SimpleMapper) Split(method string) (group, selector string, err error) {
	segments := strings.Split(method, m.separator)
	if len(segments) < 2 {
		return "", "", errors.New("expected at least two segments")
	}
	for _, seg := range segments {
		if !alphanumeric(seg) {
			return "", "", fmt.Errorf("invalid segment %q", seg)
		}
	}

	last := len(segments) - 1
	parts := make([]string, 0, last+1)
	if m.namespace != "" {
		parts = append(parts, m.namespace)
	}
	for _, seg := range segments[:last] {
		parts = append(parts, strings.ToUpper(seg[:1])+seg[1:])
	}
	return strings.Join(parts, "."), segments[last], nil
}

func alphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// Callable implements Mapper.
func (m *SimpleMapper) Callable(method string) (*Handle, error) {
	id, selector, err := m.Split(method)
	if err != nil {
		return nil, MethodError(method, err)
	}

	factory, ok := m.registry.Factory(id)
	if !ok {
		return nil, MethodError(method, fmt.Errorf("unknown handler group %s", id))
	}
	group, methods, err := construct(factory)
	if err != nil {
		return nil, MethodError(method, fmt.Errorf("construct %s: %w", id, err))
	}

	entry, ok := methods[selector]
	if !ok || entry.Func == nil {
		return nil, MethodError(method, fmt.Errorf("%s has no method %s", id, selector))
	}

	return &Handle{
		Group:    id,
		Selector: selector,
		Instance: group,
		Method:   entry,
	}, nil
}

// construct builds a group and reads its method table. A panic in either
// step is returned as an error.
func construct(factory Factory) (group Group, methods map[string]Method, err error) {
	defer func() {
		if r := recover(); r != nil {
			group, methods, err = nil, nil, fmt.Errorf("panic: %v", r)
		}
	}()
	group, err = factory()
	if err != nil {
		return nil, nil, err
	}
	if group == nil {
		return nil, nil, errors.New("factory returned nil group")
	}
	return group, group.Methods(), nil
}

// Arguments implements Mapper.
func (m *SimpleMapper) Arguments(h *Handle, args Arguments) ([]any, error) {
	if h == nil {
		return nil, ArgumentError("invalid params", errors.New("nil handle"))
	}

	params := h.Method.Params
	filled := make([]any, 0, len(params))
	for pos, param := range params {
		raw, ok := args.lookup(pos, param.Name)
		if !ok {
			if !param.Optional {
				return nil, ArgumentError("missing param: "+param.Name, nil)
			}
			raw = param.Default
		}

		value, err := m.expand(param, raw)
		if err != nil {
			return nil, ArgumentError("invalid param: "+param.Name, err)
		}
		filled = append(filled, value)
	}
	return filled, nil
}

// expand turns a raw value into the parameter's declared value type.
func (m *SimpleMapper) expand(param Param, raw any) (value any, err error) {
	if param.Type == "" {
		return raw, nil
	}
	ctor, ok := m.registry.Type(param.Type)
	if !ok {
		return nil, fmt.Errorf("unknown value type %s", param.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return ctor(raw)
}

var _ Mapper = (*SimpleMapper)(nil)
