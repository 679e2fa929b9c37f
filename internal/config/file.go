package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveValue writes key to the user config file, creating the file and any
// intermediate mappings as needed, and reloads the configuration. Only the
// file's own contents are rewritten; environment values and defaults are
// never persisted.
func SaveValue(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(KnownKeys(), ", "))
	}
	return updateFile(func(mapping *yaml.Node) error {
		setPath(mapping, strings.Split(key, "."), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value})
		return nil
	})
}

// SaveProject maps dir to a tracker project key in the user config file.
// An existing mapping for the same directory is replaced.
func SaveProject(dir, key string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("project key must not be empty")
	}

	return updateFile(func(mapping *yaml.Node) error {
		var projects []ProjectMapping
		if node := lookup(mapping, KeyProjects); node != nil {
			if err := node.Decode(&projects); err != nil {
				return fmt.Errorf("parse projects: %w", err)
			}
		}

		replaced := false
		for i := range projects {
			if filepath.Clean(projects[i].Dir) == abs {
				projects[i].Key = key
				replaced = true
			}
		}
		if !replaced {
			projects = append(projects, ProjectMapping{Dir: abs, Key: key})
		}

		var node yaml.Node
		if err := node.Encode(projects); err != nil {
			return fmt.Errorf("encode projects: %w", err)
		}
		setPath(mapping, []string{KeyProjects}, &node)
		return nil
	})
}

// updateFile loads the user config file as a yaml.Node tree, applies fn to
// its top-level mapping and writes it back with 0600 permissions.
func updateFile(fn func(mapping *yaml.Node) error) error {
	path := ConfigPath()
	if path == "" {
		return errors.New("cannot determine config file location")
	}

	data, err := os.ReadFile(path) // #nosec G304 - path from ConfigPath
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config file: %w", err)
	}

	var root yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	if root.Content[0].Kind != yaml.MappingNode {
		root.Content[0] = &yaml.Node{Kind: yaml.MappingNode}
	}

	if err := fn(root.Content[0]); err != nil {
		return err
	}

	out, err := yaml.Marshal(&root)
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return Initialize()
}

// lookup returns the value node for key in mapping, or nil.
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// setPath stores value under the nested path, replacing non-mapping nodes
// found along the way.
func setPath(mapping *yaml.Node, path []string, value *yaml.Node) {
	for len(path) > 1 {
		next := lookup(mapping, path[0])
		if next == nil {
			next = &yaml.Node{Kind: yaml.MappingNode}
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: path[0]}, next)
		} else if next.Kind != yaml.MappingNode {
			*next = yaml.Node{Kind: yaml.MappingNode}
		}
		mapping, path = next, path[1:]
	}

	if existing := lookup(mapping, path[0]); existing != nil {
		*existing = *value
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: path[0]}, value)
}
