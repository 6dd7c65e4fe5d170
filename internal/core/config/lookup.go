// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-03
// Last Modified: 2026-10-03

package config

// Lookup is a read-only string table built once from configuration.
// The zero value is an empty table.
type Lookup struct {
	m map[string]string
}

// NewLookup copies src so later changes to the map are not observed.
func NewLookup(src map[string]string) Lookup {
	m := make(map[string]string, len(src))
	for k, v := range src {
		m[k] = v
	}
	return Lookup{m: m}
}

// Get returns the value for key, or "" when the key is absent.
func (l Lookup) Get(key string) string {
	return l.m[key]
}

// Len returns the number of entries.
func (l Lookup) Len() int {
	return len(l.m)
}

// AssigneeMap returns the Tuleap username to GitHub login table.
func (c *Config) AssigneeMap() Lookup {
	return NewLookup(c.Assignees)
}

// ProjectMap returns the platform name to repository table.
func (c *Config) ProjectMap() Lookup {
	return NewLookup(c.Projects)
}
