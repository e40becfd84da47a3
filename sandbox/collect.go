// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crucible-foundation/crucible/lib/binhash"
	"github.com/crucible-foundation/crucible/lib/policy"
	"github.com/crucible-foundation/crucible/lib/proposal"
)

// maxCollectDepth is how deep the collector descends below the output
// root. Directories beyond it are recorded as violations and not
// entered.
const maxCollectDepth = 8

// collector carries the walk state.
type collector struct {
	root       string
	profile    policy.Profile
	collection *proposal.OutputCollection
}

// Collect walks root and harvests files under the profile's quotas.
// Symlinks are never followed or read; escaping or traversing paths
// are never emitted; file-count and byte quotas stop collection with
// truncated=true; directories deeper than the depth limit are not
// descended into. Every rule breach lands in SecurityViolations.
func Collect(root string, profile policy.Profile) (*proposal.OutputCollection, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("collect: %s is not a directory", root)
	}

	c := &collector{root: root, profile: profile, collection: &proposal.OutputCollection{}}
	c.walk(root, 0)
	return c.collection, nil
}

func (c *collector) violation(format string, args ...any) {
	c.collection.SecurityViolations = append(c.collection.SecurityViolations, fmt.Sprintf(format, args...))
}

// atQuota reports whether either profile quota is exhausted.
func (c *collector) atQuota() bool {
	if c.profile.MaxOutputFiles > 0 && len(c.collection.Files) >= c.profile.MaxOutputFiles {
		return true
	}
	if c.profile.MaxTotalOutputBytes > 0 && c.collection.TotalBytes >= c.profile.MaxTotalOutputBytes {
		return true
	}
	return false
}

func (c *collector) walk(dir string, depth int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		c.violation("unreadable directory %q: %v", c.relative(dir), err)
		return
	}
	// ReadDir returns entries sorted by name; the walk order, and
	// therefore which files survive a quota cut, is deterministic.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if c.collection.Truncated {
			return
		}
		full := filepath.Join(dir, entry.Name())

		info, err := os.Lstat(full)
		if err != nil {
			c.violation("unstatable entry %q: %v", c.relative(full), err)
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			// Symlinks are skipped unread. Even a link pointing inside
			// the sandbox is refused: collection reads only real files.
			c.violation("Symlink skipped: %q", c.relative(full))
			continue
		}

		if info.IsDir() {
			if depth+1 > maxCollectDepth {
				c.violation("depth limit exceeded at %q, not descending", c.relative(full))
				continue
			}
			c.walk(full, depth+1)
			continue
		}

		if !info.Mode().IsRegular() {
			c.violation("non-regular file skipped: %q", c.relative(full))
			continue
		}

		c.collectFile(full, info.Size())
	}
}

func (c *collector) collectFile(full string, size int64) {
	if c.atQuota() {
		c.collection.Truncated = true
		c.violation("quota reached, collection truncated")
		return
	}
	if c.profile.MaxTotalOutputBytes > 0 && c.collection.TotalBytes+size > c.profile.MaxTotalOutputBytes {
		c.collection.Truncated = true
		c.violation("byte quota would be exceeded by %q, collection truncated", c.relative(full))
		return
	}

	relative := c.relative(full)
	if relative == "" {
		return
	}

	file, err := os.Open(full)
	if err != nil {
		c.violation("unreadable file %q: %v", relative, err)
		return
	}
	hash, read, err := binhash.HashReader(file)
	file.Close()
	if err != nil {
		c.violation("hashing %q failed: %v", relative, err)
		return
	}

	c.collection.Files = append(c.collection.Files, proposal.CollectedFile{
		Path:      relative,
		SizeBytes: read,
		Hash:      hash,
	})
	c.collection.TotalBytes += read
}

// relative converts an absolute walk path to the emitted form and
// verifies it cannot escape: relative, forward slashes, no traversal.
// An empty return means the path was refused and a violation logged.
func (c *collector) relative(full string) string {
	relative, err := filepath.Rel(c.root, full)
	if err != nil {
		c.violation("path %q not relativizable", full)
		return ""
	}
	relative = filepath.ToSlash(relative)
	if relative == ".." || strings.HasPrefix(relative, "../") || filepath.IsAbs(relative) {
		c.violation("path %q escapes the collection root", relative)
		return ""
	}
	return relative
}
