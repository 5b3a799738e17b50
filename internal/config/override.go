package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override returns a copy of c with dotted yaml paths replaced, for example
// {"pid.vmax": 0.2, "task.timeout": 60}. Unknown paths are an error.
func (c *Config) Override(values map[string]any) (*Config, error) {
	if len(values) == 0 {
		return c.Clone(), nil
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := set(tree, strings.Split(p, "."), values[p]); err != nil {
			return nil, fmt.Errorf("%w: override %q: %v", ErrInvalid, p, err)
		}
	}

	if data, err = yaml.Marshal(tree); err != nil {
		return nil, err
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return out, nil
}

func set(node map[string]any, keys []string, v any) error {
	cur, ok := node[keys[0]]
	if !ok {
		return fmt.Errorf("no field %q", keys[0])
	}
	if len(keys) == 1 {
		if _, isMap := cur.(map[string]any); isMap {
			return fmt.Errorf("%q is a section", keys[0])
		}
		node[keys[0]] = v
		return nil
	}
	child, ok := cur.(map[string]any)
	if !ok {
		return fmt.Errorf("%q is not a section", keys[0])
	}
	return set(child, keys[1:], v)
}
