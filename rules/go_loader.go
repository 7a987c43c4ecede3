package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

const goRuleFuncName = "Rules"

// LoadGoRuleDir evaluates every .go file in dir and collects the rules
// declared via Rules(). The files are interpreted, not compiled, so operators
// can compute rule values (dates, thresholds) with ordinary Go.
func LoadGoRuleDir(dir string) ([]RuleFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rule: read %s: %w", trimmed, err)
	}
	var files []RuleFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		fileRules, err := loadGoRuleFile(filepath.Join(trimmed, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, fileRules...)
	}
	if len(files) == 0 {
		return nil, nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func loadGoRuleFile(path string) ([]RuleFile, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rule: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, fmt.Errorf("rule: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	i.Use(stdlib.Symbols)
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("rule: interpret %s: %w", path, err)
	}
	fnValue, err := i.Eval(goRuleFuncName)
	if err != nil {
		return nil, fmt.Errorf("rule: %s must define %s() ([]map[string]any, error): %w", path, goRuleFuncName, err)
	}
	raws, callErr := invokeRuleFunc(fnValue)
	if callErr != nil {
		return nil, fmt.Errorf("rule: %s: %w", path, callErr)
	}
	files := make([]RuleFile, 0, len(raws))
	for idx, raw := range raws {
		payload, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("rule: %s rule[%d]: %w", path, idx, err)
		}
		parsed, err := ParseRuleYAML(payload)
		if err != nil {
			return nil, fmt.Errorf("rule: %s rule[%d]: %w", path, idx, err)
		}
		files = append(files, RuleFile{Rule: parsed, Path: fmt.Sprintf("%s#%d", path, idx+1)})
	}
	return files, nil
}

func invokeRuleFunc(value reflect.Value) ([]map[string]any, error) {
	if !value.IsValid() {
		return nil, fmt.Errorf("missing %s function", goRuleFuncName)
	}
	fn := value
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goRuleFuncName)
	}
	results := fn.Call(nil)
	if len(results) == 0 || len(results) > 2 {
		return nil, fmt.Errorf("%s must return ([]map[string]any[, error])", goRuleFuncName)
	}
	rulesVal := results[0]
	if len(results) == 2 {
		if !results[1].IsNil() {
			if e, ok := results[1].Interface().(error); ok && e != nil {
				return nil, e
			}
			return nil, fmt.Errorf("%s returned non-error second value", goRuleFuncName)
		}
	}
	raws, ok := rulesVal.Interface().([]map[string]any)
	if ok {
		return raws, nil
	}
	if rulesVal.Kind() == reflect.Slice {
		result := make([]map[string]any, rulesVal.Len())
		for i := 0; i < rulesVal.Len(); i++ {
			entry := rulesVal.Index(i).Interface()
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] is not map[string]any", goRuleFuncName, i)
			}
			result[i] = m
		}
		return result, nil
	}
	return nil, fmt.Errorf("%s must return []map[string]any", goRuleFuncName)
}
