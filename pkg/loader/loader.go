// Package loader applies chains of text transforms ("loaders") to module
// source before it is parsed.
//
// Rules select transforms by matching the module's absolute path. All
// transforms collected for a path run right to left: the last one declared
// sees the raw source first and the first one declared produces the final
// text.
package loader

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/moby/patternmatcher"
)

// Transform rewrites module source text.
type Transform interface {
	Transform(source string) (string, error)
}

// Func adapts a function to the Transform interface.
type Func func(source string) (string, error)

func (f Func) Transform(source string) (string, error) { return f(source) }

// Rule attaches transforms to the modules whose path matches Test.
type Rule struct {
	Test *regexp.Regexp
	// Exclude holds glob patterns, matched against the path relative to the
	// pipeline root, that opt a module out of the rule.
	Exclude *patternmatcher.PatternMatcher
	Use     []Transform
}

// NewRule compiles a rule.
func NewRule(test string, exclude []string, use ...Transform) (Rule, error) {
	re, err := regexp.Compile(test)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid rule test %q: %w", test, err)
	}
	r := Rule{Test: re, Use: use}
	if len(exclude) > 0 {
		pm, err := patternmatcher.New(exclude)
		if err != nil {
			return Rule{}, fmt.Errorf("invalid rule exclude %v: %w", exclude, err)
		}
		r.Exclude = pm
	}
	return r, nil
}

// Pipeline holds the ordered rules of a build.
type Pipeline struct {
	Root  string
	Rules []Rule
}

// Match returns the transforms for path in declaration order.
func (p *Pipeline) Match(path string) ([]Transform, error) {
	if p == nil {
		return nil, nil
	}
	var matched []Transform
	for _, rule := range p.Rules {
		if rule.Test == nil || !rule.Test.MatchString(path) {
			continue
		}
		if rule.Exclude != nil {
			rel, err := filepath.Rel(filepath.FromSlash(p.Root), filepath.FromSlash(path))
			if err != nil {
				rel = path
			}
			excluded, err := rule.Exclude.MatchesOrParentMatches(rel)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}
		}
		matched = append(matched, rule.Use...)
	}
	return matched, nil
}

// Apply runs the matched transforms over source, last declared first.
func (p *Pipeline) Apply(path, source string) (string, error) {
	transforms, err := p.Match(path)
	if err != nil {
		return "", err
	}
	for i := len(transforms) - 1; i >= 0; i-- {
		out, err := transforms[i].Transform(source)
		if err != nil {
			return "", fmt.Errorf("%s: %w", describe(transforms[i]), err)
		}
		source = out
	}
	return source, nil
}

func describe(t Transform) string {
	if s, ok := t.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", t)
}
