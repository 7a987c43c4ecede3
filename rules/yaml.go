package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleFile pairs a parsed rule with its on-disk source.
type RuleFile struct {
	Rule Rule
	Path string
}

// ParseRuleYAML decodes and validates a single rule payload.
func ParseRuleYAML(data []byte) (Rule, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Rule{}, fmt.Errorf("rule: payload is empty")
	}
	var rule Rule
	if err := yaml.Unmarshal(data, &rule); err != nil {
		return Rule{}, fmt.Errorf("rule: decode: %w", err)
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule.Normalized(), nil
}

// LoadRuleFile reads a YAML file from disk and returns the parsed rule.
func LoadRuleFile(path string) (RuleFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return RuleFile{}, fmt.Errorf("rule: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return RuleFile{}, fmt.Errorf("rule: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleFile{}, fmt.Errorf("rule: read %s: %w", path, err)
	}
	rule, err := ParseRuleYAML(data)
	if err != nil {
		return RuleFile{}, fmt.Errorf("rule: %s: %w", path, err)
	}
	return RuleFile{Rule: rule, Path: filepath.Clean(path)}, nil
}

// LoadRuleDir scans a directory for *.yaml rules and returns them sorted by
// path. Missing directories are treated as "no rules" to simplify startup.
func LoadRuleDir(dir string) ([]RuleFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("rule: read %s: %w", trimmed, err)
	}
	var files []RuleFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isYAMLFile(name) {
			continue
		}
		file, err := LoadRuleFile(filepath.Join(trimmed, name))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// LoadAll combines the YAML and interpreted Go rules found under dir.
func LoadAll(dir string) ([]RuleFile, error) {
	yamlRules, err := LoadRuleDir(dir)
	if err != nil {
		return nil, err
	}
	goRules, err := LoadGoRuleDir(dir)
	if err != nil {
		return nil, err
	}
	all := append(yamlRules, goRules...)
	if len(all) == 0 {
		return nil, nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	return all, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
