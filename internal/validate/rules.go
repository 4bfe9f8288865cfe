// Package validate rejects fabricated-looking records and computes the
// deterministic reliability score. The fabrication rules live in a
// versioned YAML rule set so they can be tuned without a code change.
package validate

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Signature is one fabrication pattern. A match on any of the listed fields
// rejects the whole record.
type Signature struct {
	Pattern string   `yaml:"pattern"`
	Fields  []string `yaml:"fields"`
	Reason  string   `yaml:"reason"`

	re *regexp.Regexp
}

// RuleSet is the compiled fabrication rule set.
type RuleSet struct {
	Version             int         `yaml:"version"`
	Signatures          []Signature `yaml:"signatures"`
	SuspiciousAmounts   []string    `yaml:"suspicious_amounts"`
	SuspiciousDeadlines []string    `yaml:"suspicious_deadlines"`
	URLDenyList         []string    `yaml:"url_denylist"`

	deadlineRes []*regexp.Regexp
	denied      map[string]struct{}
}

// DefaultRules returns the rule set shipped with the binary.
func DefaultRules() (*RuleSet, error) {
	return parseRules(defaultRulesYAML)
}

// LoadRules reads a rule set from a YAML file. An empty path loads the
// embedded default.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "validate: read rules %s", path)
	}
	return parseRules(data)
}

func parseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, eris.Wrap(err, "validate: parse rules")
	}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (rs *RuleSet) compile() error {
	if rs.Version < 1 {
		return eris.Errorf("validate: rule set missing version (got %d)", rs.Version)
	}
	for i := range rs.Signatures {
		sig := &rs.Signatures[i]
		if len(sig.Fields) == 0 {
			return eris.Errorf("validate: signature %q scopes no fields", sig.Pattern)
		}
		re, err := regexp.Compile(sig.Pattern)
		if err != nil {
			return eris.Wrapf(err, "validate: compile signature %q", sig.Pattern)
		}
		sig.re = re
	}
	rs.deadlineRes = make([]*regexp.Regexp, 0, len(rs.SuspiciousDeadlines))
	for _, p := range rs.SuspiciousDeadlines {
		re, err := regexp.Compile(p)
		if err != nil {
			return eris.Wrapf(err, "validate: compile deadline pattern %q", p)
		}
		rs.deadlineRes = append(rs.deadlineRes, re)
	}
	rs.denied = make(map[string]struct{}, len(rs.URLDenyList))
	for _, u := range rs.URLDenyList {
		rs.denied[normalizeURL(u)] = struct{}{}
	}
	return nil
}

// Denied reports whether a source URL is on the generic-homepage deny list.
func (rs *RuleSet) Denied(url string) bool {
	_, ok := rs.denied[normalizeURL(url)]
	return ok
}

// normalizeURL canonicalizes a URL for deny-list comparison: lowercase,
// no scheme, no trailing slash.
func normalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	return strings.TrimRight(u, "/")
}
