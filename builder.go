package confwire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Builder accumulates key/value pairs before freezing them into a Settings
// overlay. Not safe for concurrent use.
type Builder struct {
	kv map[string]string
}

func NewBuilder() *Builder {
	return &Builder{kv: make(map[string]string)}
}

// Put sets key to value, replacing any previous value.
func (b *Builder) Put(key, value string) *Builder {
	b.kv[key] = value
	return b
}

// PutAll copies every pair of m into the builder.
func (b *Builder) PutAll(m map[string]string) *Builder {
	for k, v := range m {
		b.kv[k] = v
	}
	return b
}

// Remove drops key from the builder.
func (b *Builder) Remove(key string) *Builder {
	delete(b.kv, key)
	return b
}

// LoadSource merges a raw JSON or YAML settings document into the builder.
// Nested objects flatten to dotted keys; arrays index as key.0, key.1, …
// The builder is left untouched on error.
func (b *Builder) LoadSource(source string) error {
	var root map[string]any
	if looksLikeJSON(source) {
		if err := json.Unmarshal([]byte(source), &root); err != nil {
			return fmt.Errorf("parse settings source: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(source), &root); err != nil {
			return fmt.Errorf("parse settings source: %w", err)
		}
	}
	flat := make(map[string]string, len(root))
	for k, v := range root {
		if err := flattenInto(k, v, flat); err != nil {
			return err
		}
	}
	for k, v := range flat {
		b.kv[k] = v
	}
	return nil
}

// Build freezes the current contents into a Settings overlay. The builder
// remains usable; later mutations do not leak into the built value.
func (b *Builder) Build() *Settings {
	return FromMap(b.kv)
}

// looksLikeJSON sniffs the document type: a leading '{' or '[' means JSON,
// anything else is treated as YAML.
func looksLikeJSON(source string) bool {
	s := strings.TrimLeft(source, " \t\r\n")
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func flattenInto(key string, v any, out map[string]string) error {
	switch t := v.(type) {
	case map[string]any:
		for k, cv := range t {
			if err := flattenInto(key+"."+k, cv, out); err != nil {
				return err
			}
		}
	case []any:
		for i, cv := range t {
			if err := flattenInto(key+"."+strconv.Itoa(i), cv, out); err != nil {
				return err
			}
		}
	case string:
		out[key] = t
	case bool:
		out[key] = strconv.FormatBool(t)
	case int:
		out[key] = strconv.Itoa(t)
	case int64:
		out[key] = strconv.FormatInt(t, 10)
	case uint64:
		out[key] = strconv.FormatUint(t, 10)
	case float64:
		out[key] = strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return fmt.Errorf("null value for setting %q", key)
	default:
		return fmt.Errorf("setting %q has unsupported value type %T", key, v)
	}
	return nil
}

// MapToDocument renders m as a JSON settings document, the inverse of
// LoadSource for flat maps. Values json cannot express fail here.
func MapToDocument(m map[string]any) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
