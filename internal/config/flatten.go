package config

import (
	"reflect"
	"strings"
	"sync"
)

// secretKeys are the dotted keys of Config fields tagged `secret:"true"`.
var secretKeys = sync.OnceValue(func() map[string]bool {
	keys := make(map[string]bool)
	collectSecrets(reflect.TypeOf(Config{}), nil, keys)
	return keys
})

func collectSecrets(t reflect.Type, path []string, keys map[string]bool) {
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		p := append(path[:len(path):len(path)], name)
		if f.Type.Kind() == reflect.Struct {
			collectSecrets(f.Type, p, keys)
			continue
		}
		if f.Tag.Get("secret") == "true" {
			keys[strings.Join(p, ".")] = true
		}
	}
}

// IsSecretKey reports whether key names a credential.
func IsSecretKey(key string) bool {
	return secretKeys()[key]
}

// Flatten turns nested maps into one map keyed by dotted paths, so
// {"api": {"base_url": "x"}} becomes {"api.base_url": "x"}. Anything that
// is not a map, slices included, is a leaf.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
			} else {
				out[k] = v
			}
		}
	}
	walk("", m)
	return out
}

// Unflatten is the inverse of Flatten.
func Unflatten(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for key, v := range flat {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v
	}
	return root
}

// MaskSecrets copies flat with every non-empty secret reduced to "***"
// and its last four characters.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		if s, ok := v.(string); ok && s != "" && IsSecretKey(k) {
			v = "***" + s[max(0, len(s)-4):]
		}
		out[k] = v
	}
	return out
}
