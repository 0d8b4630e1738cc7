package gate

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/conform/internal/invoke"
)

// VersionFlag is the single argument used to probe the subject.
const VersionFlag = "--version"

// libVersions extracts the runtime and build-time library versions.
var libVersions = regexp.MustCompile(`libcurl/([0-9][^\s\]]*) \[built-with ([0-9][^\s\]]*)\]`)

// Environment is the capability snapshot taken once per run.
// It is read-only after Discover returns.
type Environment struct {
	// Features is the sorted, de-duplicated capability set.
	Features []string `json:"features"`

	// Runtime is the library version the subject runs against.
	Runtime string `json:"runtime"`

	// Build is the library version the subject was built with.
	Build string `json:"build"`

	// Encoding is the active locale's character encoding.
	Encoding string `json:"encoding"`

	// VersionText is the raw output of the version probe.
	VersionText string `json:"version_text,omitempty"`
}

// Has reports whether the capability set contains feature.
func (e Environment) Has(feature string) bool {
	_, found := slices.BinarySearch(e.Features, feature)
	return found
}

// ParseVersionOutput extracts the capability set and library versions from
// the subject's --version output.
func ParseVersionOutput(text string) Environment {
	env := Environment{VersionText: text}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) > 1 {
		tokens := strings.Fields(lines[1])
		if len(tokens) > 1 {
			features := slices.Clone(tokens[1:])
			slices.Sort(features)
			env.Features = slices.Compact(features)
		}
	}
	if env.Features == nil {
		env.Features = []string{}
	}

	if m := libVersions.FindStringSubmatch(text); m != nil {
		env.Runtime = m[1]
		env.Build = m[2]
	}
	return env
}

// Discover probes the subject once through s and records the locale
// encoding. A non-empty encoding overrides locale detection.
func Discover(ctx context.Context, s invoke.Strategy, encoding string, getenv func(string) string) (Environment, error) {
	out, err := s.Invoke(ctx, invoke.Request{Args: []string{VersionFlag}})
	if err != nil {
		return Environment{}, fmt.Errorf("probe %s %s: %w", s.Subject(), VersionFlag, err)
	}
	text, _ := out.Stdout.(string)
	env := ParseVersionOutput(text)

	if encoding != "" {
		env.Encoding = CanonicalEncoding(encoding)
	} else {
		env.Encoding = DetectEncoding(getenv)
	}
	return env, nil
}

// Requirements are the gating attributes a case may declare.
type Requirements struct {
	Features   []string `json:"required,omitempty"`
	MinRuntime string   `json:"minruntime,omitempty"`
	MinBuild   string   `json:"minbuildtime,omitempty"`
	Encoding   string   `json:"encoding,omitempty"`
}

// Reason classifies why a case was skipped.
type Reason string

const (
	MissingFeature Reason = "missing feature"
	RuntimeTooLow  Reason = "runtime too low"
	BuildTooLow    Reason = "build-time too low"
	InvalidLocale  Reason = "invalid locale"
)

// Skip explains a skipped case.
type Skip struct {
	Reason Reason `json:"reason"`

	// Need and Have describe the failed requirement and the discovered
	// value. For MissingFeature, Need lists the absent features.
	Need string `json:"need"`
	Have string `json:"have"`
}

func (s *Skip) String() string {
	if s.Reason == MissingFeature {
		return fmt.Sprintf("%s: %s", s.Reason, s.Need)
	}
	return fmt.Sprintf("%s (need %s, have %s)", s.Reason, s.Need, s.Have)
}

// ShouldSkip returns nil when req is satisfied by env, otherwise the first
// failing check.
func ShouldSkip(req Requirements, env Environment) *Skip {
	var missing []string
	for _, f := range req.Features {
		if !env.Has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &Skip{
			Reason: MissingFeature,
			Need:   strings.Join(missing, " "),
			Have:   strings.Join(env.Features, " "),
		}
	}

	if req.MinRuntime != "" && !atLeast(env.Runtime, req.MinRuntime) {
		return &Skip{Reason: RuntimeTooLow, Need: req.MinRuntime, Have: orUnknown(env.Runtime)}
	}
	if req.MinBuild != "" && !atLeast(env.Build, req.MinBuild) {
		return &Skip{Reason: BuildTooLow, Need: req.MinBuild, Have: orUnknown(env.Build)}
	}

	if req.Encoding != "" && CanonicalEncoding(req.Encoding) != env.Encoding {
		return &Skip{Reason: InvalidLocale, Need: req.Encoding, Have: orUnknown(env.Encoding)}
	}
	return nil
}

// atLeast reports have >= need. An unknown version never satisfies.
func atLeast(have, need string) bool {
	if have == "" {
		return false
	}
	return CompareVersions(have, need) >= 0
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
