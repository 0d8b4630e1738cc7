package suite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/conform/internal/expect"
	"github.com/roach88/conform/internal/gate"
)

// Format identifies a suite file syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported suite format %q (want .json, .yaml, .yml, .toml or .cue)", filepath.Ext(path))
	}
}

// LoadError describes an invalid suite or case.
type LoadError struct {
	Path    string
	Index   int    // 1-based case index, 0 for file-level errors
	Field   string // offending key, if any
	Message string
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	if e.Index > 0 {
		fmt.Fprintf(&b, "test %d: ", e.Index)
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Load reads and validates the suite at path.
func Load(path string) ([]TestCase, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	cases, err := Parse(data, format, path)
	if err != nil {
		return nil, err
	}
	return cases, nil
}

// Parse decodes and validates suite data. name is used in error messages
// and as the CUE filename.
func Parse(data []byte, format Format, name string) ([]TestCase, error) {
	tree, err := decode(data, format, name)
	if err != nil {
		return nil, &LoadError{Path: name, Message: err.Error()}
	}

	list, err := caseList(tree)
	if err != nil {
		return nil, &LoadError{Path: name, Message: err.Error()}
	}

	cases := make([]TestCase, 0, len(list))
	for i, raw := range list {
		tc, err := buildCase(i+1, raw)
		if err != nil {
			err.Path = name
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

// decode parses data into a generic tree of maps, slices and scalars with
// numbers normalized by expect.Normalize.
func decode(data []byte, format Format, name string) (any, error) {
	var tree any
	switch format {
	case FormatJSON:
		v, err := decodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		tree = v
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		tree = doc
	case FormatCUE:
		v, err := decodeCUE(data, name)
		if err != nil {
			return nil, err
		}
		tree = v
	default:
		return nil, fmt.Errorf("unsupported suite format %q", format)
	}

	norm, err := stringKeys(tree)
	if err != nil {
		return nil, err
	}
	return expect.Normalize(norm), nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data[dec.InputOffset():])) > 0 {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

// decodeCUE evaluates a CUE suite and exports it through JSON so numbers
// decode the same way as a JSON suite.
func decodeCUE(data []byte, name string) (any, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, cueError("failed to compile CUE", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError("CUE suite is not concrete", err)
	}
	exported, err := value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE: %w", err)
	}
	return decodeJSON(exported)
}

// cueError reports the first CUE error with its source position.
func cueError(prefix string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	first := errs[0]
	if pos := cueerrors.Positions(first); len(pos) > 0 && pos[0].IsValid() {
		return fmt.Errorf("%s: line %d:%d: %w", prefix, pos[0].Line(), pos[0].Column(), first)
	}
	return fmt.Errorf("%s: %w", prefix, first)
}

// stringKeys rejects mappings with non-string keys, which YAML allows.
func stringKeys(v any) (any, error) {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("mapping key %v is not a string", k)
			}
			conv, err := stringKeys(elem)
			if err != nil {
				return nil, err
			}
			out[key] = conv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			conv, err := stringKeys(elem)
			if err != nil {
				return nil, err
			}
			out[k] = conv
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			conv, err := stringKeys(elem)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	default:
		return v, nil
	}
}

// caseList accepts a top-level list or an object with a "tests" list.
func caseList(tree any) ([]any, error) {
	switch val := tree.(type) {
	case []any:
		return val, nil
	case map[string]any:
		tests, ok := val["tests"]
		if !ok {
			return nil, fmt.Errorf(`suite must be a list of tests or an object with a "tests" list`)
		}
		if len(val) > 1 {
			return nil, fmt.Errorf("unknown top-level keys: %s", strings.Join(extraKeys(val, "tests"), ", "))
		}
		list, ok := tests.([]any)
		if !ok {
			return nil, fmt.Errorf(`"tests" must be a list`)
		}
		return list, nil
	case nil:
		return nil, fmt.Errorf("suite is empty")
	default:
		return nil, fmt.Errorf("suite must be a list of tests, got %T", tree)
	}
}

// Case keys.
const (
	keyInput        = "input"
	keyArguments    = "arguments"
	keyExpected     = "expected"
	keyRequired     = "required"
	keyMinRuntime   = "minruntime"
	keyMinBuildTime = "minbuildtime"
	keyEncoding     = "encoding"
)

var caseKeys = []string{keyInput, keyExpected, keyRequired, keyMinRuntime, keyMinBuildTime, keyEncoding}

// buildCase validates one raw case and converts it to a TestCase.
func buildCase(index int, raw any) (TestCase, *LoadError) {
	fail := func(field, format string, args ...any) (TestCase, *LoadError) {
		return TestCase{}, &LoadError{Index: index, Field: field, Message: fmt.Sprintf(format, args...)}
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return fail("", "test must be an object, got %s", typeName(raw))
	}
	if extra := extraKeys(m, caseKeys...); len(extra) > 0 {
		return fail("", "unknown keys: %s", strings.Join(extra, ", "))
	}

	tc := TestCase{Index: index}

	// input.arguments
	input, ok := m[keyInput].(map[string]any)
	if !ok {
		return fail(keyInput, "input is required and must be an object")
	}
	if extra := extraKeys(input, keyArguments); len(extra) > 0 {
		return fail(keyInput, "unknown keys: %s", strings.Join(extra, ", "))
	}
	args, err := stringList(input[keyArguments])
	if err != nil {
		return fail(keyInput+"."+keyArguments, "%v", err)
	}
	tc.Arguments = args

	// expected
	expected, ok := m[keyExpected].(map[string]any)
	if !ok || len(expected) == 0 {
		return fail(keyExpected, "expected is required and must be a non-empty object")
	}
	entries := make(map[expect.Field]expect.Expectation, len(expected))
	for _, name := range sortedKeys(expected) {
		field, err := expect.ParseField(name)
		if err != nil {
			return fail(keyExpected, "%v", err)
		}
		value := expected[name]
		if err := checkExpectedValue(field, value); err != nil {
			return fail(keyExpected+"."+name, "%v", err)
		}
		entries[field] = expect.FromValue(value)
	}
	tc.Expected = expect.NewSet(entries)

	// gating attributes
	if raw, present := m[keyRequired]; present {
		features, err := stringList(raw)
		if err != nil {
			return fail(keyRequired, "%v", err)
		}
		tc.Requirements.Features = features
	}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{keyMinRuntime, &tc.Requirements.MinRuntime},
		{keyMinBuildTime, &tc.Requirements.MinBuild},
	} {
		raw, present := m[f.key]
		if !present {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return fail(f.key, "must be a string, got %s", typeName(raw))
		}
		if err := gate.ValidateVersion(s); err != nil {
			return fail(f.key, "%v", err)
		}
		*f.dst = s
	}
	if raw, present := m[keyEncoding]; present {
		s, ok := raw.(string)
		if !ok || s == "" {
			return fail(keyEncoding, "must be a non-empty string")
		}
		tc.Requirements.Encoding = s
	}

	return tc, nil
}

// checkExpectedValue enforces the value shapes each field can hold.
func checkExpectedValue(field expect.Field, value any) error {
	switch field {
	case expect.Stderr:
		switch value.(type) {
		case string, bool:
			return nil
		}
		return fmt.Errorf("must be a string or boolean, got %s", typeName(value))
	case expect.ReturnCode:
		switch value.(type) {
		case int64, bool:
			return nil
		}
		return fmt.Errorf("must be an integer or boolean, got %s", typeName(value))
	default:
		return nil
	}
}

func stringList(raw any) ([]string, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("must be a list of strings, got %s", typeName(raw))
	}
	out := make([]string, len(list))
	for i, elem := range list {
		s, ok := elem.(string)
		if !ok {
			return nil, fmt.Errorf("element %d must be a string, got %s", i, typeName(elem))
		}
		out[i] = s
	}
	return out, nil
}

func extraKeys(m map[string]any, allowed ...string) []string {
	var extra []string
	for k := range m {
		known := false
		for _, a := range allowed {
			if k == a {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
