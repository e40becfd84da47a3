// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy defines the immutable execution profiles that bound
// what a sandboxed executor may do. Profiles are a built-in constant
// table, parsed once from embedded YAML; loading a profile is pure
// lookup with no side effects, and callers receive values, never
// shared pointers.
package policy

import (
	_ "embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Profile names. These are the only three profiles; there is no
// mechanism for defining new ones at runtime.
const (
	ProfileStrict  = "strict"
	ProfileDefault = "default"
	ProfileDev     = "dev"
)

// Profile bounds one execution. An empty allow-list means "all
// allowed"; only dev uses that.
type Profile struct {
	Name string `json:"name" yaml:"name"`

	// AllowNetwork is always false. No profile grants network access;
	// the field exists so the restriction is explicit in every audit
	// record.
	AllowNetwork bool `json:"allow_network" yaml:"allow_network"`

	TimeoutMS           int64 `json:"timeout_ms" yaml:"timeout_ms"`
	MaxOutputFiles      int   `json:"max_output_files" yaml:"max_output_files"`
	MaxTotalOutputBytes int64 `json:"max_total_output_bytes" yaml:"max_total_output_bytes"`

	AllowedCommands   []string `json:"allowed_commands" yaml:"allowed_commands"`
	AllowedWriteRoots []string `json:"allowed_write_roots" yaml:"allowed_write_roots"`
}

// builtinProfilesYAML is the complete profile table, compiled into the
// binary. There are no override files: policy is code, shipped with
// the binary.
//
//go:embed profiles.yaml
var builtinProfilesYAML []byte

type profilesConfig struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

var (
	parseOnce sync.Once
	profiles  map[string]Profile
	parseErr  error
)

func loadTable() (map[string]Profile, error) {
	parseOnce.Do(func() {
		var config profilesConfig
		if err := yaml.Unmarshal(builtinProfilesYAML, &config); err != nil {
			parseErr = fmt.Errorf("parse built-in profiles: %w", err)
			return
		}
		profiles = config.Profiles
	})
	return profiles, parseErr
}

// Load resolves a profile by name. The result is a value copy:
// mutating it cannot affect other loads, and repeated loads of the
// same name are identical.
func Load(name string) (Profile, error) {
	table, err := loadTable()
	if err != nil {
		return Profile{}, err
	}
	profile, ok := table[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown policy profile %q (want strict, default, or dev)", name)
	}
	// Copy the slices so callers can never alias the table.
	profile.AllowedCommands = append([]string(nil), profile.AllowedCommands...)
	profile.AllowedWriteRoots = append([]string(nil), profile.AllowedWriteRoots...)
	return profile, nil
}

// Names lists the available profile names, sorted.
func Names() []string {
	table, err := loadTable()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCommandAllowed reports whether the profile permits running the
// named executable. Only the bare command name is matched; paths are
// rejected outright so an allow-list entry can never be satisfied by
// /evil/node.
func (p Profile) IsCommandAllowed(command string) bool {
	if command == "" || strings.ContainsAny(command, "/\\") {
		return false
	}
	if len(p.AllowedCommands) == 0 {
		return true
	}
	for _, allowed := range p.AllowedCommands {
		if command == allowed {
			return true
		}
	}
	return false
}

// IsWritePathAllowed reports whether the profile permits writing the
// given sandbox-relative path. Absolute and traversing paths are
// always rejected; beyond that the first path element must be one of
// the allowed write roots.
func (p Profile) IsWritePathAllowed(relative string) bool {
	if relative == "" || path.IsAbs(relative) || strings.Contains(relative, "\\") {
		return false
	}
	cleaned := path.Clean(relative)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	if len(p.AllowedWriteRoots) == 0 {
		return true
	}
	root := cleaned
	if index := strings.IndexByte(cleaned, '/'); index >= 0 {
		root = cleaned[:index]
	}
	for _, allowed := range p.AllowedWriteRoots {
		if root == allowed {
			return true
		}
	}
	return false
}
