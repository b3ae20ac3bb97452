package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/mnehpets/onerpc/dispatch"
)

func runMethods(cmd *cobra.Command, cfg Config) error {
	logger := newLogger(cfg, cmd.ErrOrStderr())
	s, err := newStack(cfg, logger)
	if err != nil {
		return err
	}

	lines, err := listMethods(s, logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

// listMethods describes every entry point the mapper can reach, e.g.
// "math/pow(a float, b float = 2)". Groups the mapper cannot resolve to
// (outside the namespace or with lowercase segments) are skipped.
func listMethods(s *stack, logger *slog.Logger) ([]string, error) {
	sep := s.mapper.Separator()
	var lines []string
	for _, id := range s.registry.Groups() {
		prefix, ok := clientPrefix(id, s.mapper.Namespace(), sep)
		if !ok {
			continue
		}
		factory, _ := s.registry.Factory(id)
		methods, err := methodTable(factory)
		if err != nil {
			logger.Warn("skipping handler group", slog.String("group", id), slog.Any("error", err))
			continue
		}

		selectors := make([]string, 0, len(methods))
		for name := range methods {
			selectors = append(selectors, name)
		}
		slices.Sort(selectors)

		for _, selector := range selectors {
			name := prefix + sep + selector
			if resolved, _, err := s.mapper.Split(name); err != nil || resolved != id {
				continue
			}
			sig, err := signature(methods[selector].Params)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			lines = append(lines, name+sig)
		}
	}
	return lines, nil
}

// methodTable builds a group and returns its methods, recovering from a
// panicking factory or method table.
func methodTable(factory dispatch.Factory) (methods map[string]dispatch.Method, err error) {
	defer func() {
		if r := recover(); r != nil {
			methods, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	group, err := factory()
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, errors.New("factory returned nil group")
	}
	return group.Methods(), nil
}

// clientPrefix turns a group identifier such as "API.Share.Nas" into the
// method name prefix "share/nas".
func clientPrefix(id, namespace, sep string) (string, bool) {
	rest := id
	if namespace != "" {
		var ok bool
		if rest, ok = strings.CutPrefix(id, namespace+"."); !ok {
			return "", false
		}
	}
	segments := strings.Split(rest, ".")
	for i, seg := range segments {
		r, size := utf8.DecodeRuneInString(seg)
		segments[i] = string(unicode.ToLower(r)) + seg[size:]
	}
	return strings.Join(segments, sep), true
}

func signature(params []dispatch.Param) (string, error) {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		part := p.Name
		if p.Type != "" {
			part += " " + p.Type
		}
		if p.Optional {
			def, err := json.Marshal(p.Default)
			if err != nil {
				return "", err
			}
			part += " = " + string(def)
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}
