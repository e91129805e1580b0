package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Static replays canned answers. It is used for fixtures and tests.
type Static map[Query]string

// Query returns the canned answer for q.
func (s Static) Query(_ context.Context, q Query) (string, error) {
	out, ok := s[q]
	if !ok {
		return "", fmt.Errorf("%w: %s not in fixture", ErrUnsupportedQuery, q)
	}
	return out, nil
}

// LoadStatic reads a YAML fixture whose keys are query names, e.g.
//
//	adapters: |
//	  Node,AdapterRAM,Name
//	  HOST,4293918720,NVIDIA GeForce RTX 3080
//	driver_version: "551.86"
func LoadStatic(path string) (Static, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- fixture path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read probe fixture: %w", err)
	}

	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse probe fixture: %w", err)
	}

	known := make(map[Query]bool, len(AllQueries))
	for _, q := range AllQueries {
		known[q] = true
	}

	s := make(Static, len(raw))
	for k, v := range raw {
		if !known[Query(k)] {
			return nil, fmt.Errorf("probe fixture: unknown query %q", k)
		}
		s[Query(k)] = v
	}
	return s, nil
}
