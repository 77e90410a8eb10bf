package config

import (
	"reflect"
	"strings"
)

// ParseConfigPath splits a dotted key such as "agent.maxActions" and checks
// it against the Config schema, so `config set` cannot write keys Load would
// silently ignore. A key may name a section or a leaf.
func ParseConfigPath(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	t := reflect.TypeOf(Config{})
	for i, part := range parts {
		if part == "" {
			return nil, &ConfigError{Message: "config path contains empty segment: " + raw}
		}
		if t == nil {
			return nil, &ConfigError{Message: "config path goes below a value: " + strings.Join(parts[:i+1], ".")}
		}
		field, ok := fieldByYAMLName(t, part)
		if !ok {
			return nil, &ConfigError{Message: "unknown config key: " + strings.Join(parts[:i+1], ".")}
		}
		t = structType(field.Type)
	}
	return parts, nil
}

// fieldByYAMLName finds the field whose yaml tag is name.
func fieldByYAMLName(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if tag == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// structType returns t, or its element for pointers, when it is a struct;
// nil for leaves.
func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return t
	}
	return nil
}

// walk follows path[:len(path)-1] through nested maps. With create set,
// missing or non-map intermediates are replaced by empty maps.
func walk(root map[string]any, path []string, create bool) (map[string]any, bool) {
	cur := root
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			if !create {
				return nil, false
			}
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	return cur, true
}

// GetValueAtPath reads the value at path from a raw YAML document.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	parent, ok := walk(root, path, false)
	if !ok {
		return nil, false
	}
	v, ok := parent[path[len(path)-1]]
	return v, ok
}

// SetValueAtPath writes value at path, creating sections as needed.
func SetValueAtPath(root map[string]any, path []string, value any) {
	if len(path) == 0 {
		return
	}
	parent, _ := walk(root, path, true)
	parent[path[len(path)-1]] = value
}

// UnsetValueAtPath deletes the value at path and reports whether it was
// present. Sections left empty are kept.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	parent, ok := walk(root, path, false)
	if !ok {
		return false
	}
	last := path[len(path)-1]
	if _, ok := parent[last]; !ok {
		return false
	}
	delete(parent, last)
	return true
}
