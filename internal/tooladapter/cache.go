// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package tooladapter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache persists Adapter Results on disk, keyed by (adapter name,
// adapter_version, content_hash_of_input_set) (spec §4.2). Writes are
// atomic (write-then-rename) mirroring internal/reportstore's discipline,
// since a half-written cache entry is worse than no cache entry: a reader
// would either get a parse error (safe) or, without the rename, a
// truncated-but-parseable JSON document (unsafe).
type Cache struct {
	dir string
}

// NewCache returns a Cache rooted at dir, creating it if necessary.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating tool adapter cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Get returns the cached Result for (adapterName, adapterVersion,
// contentHash), or ok=false on a cache miss.
func (c *Cache) Get(adapterName, adapterVersion, contentHash string) (Result, bool) {
	data, err := os.ReadFile(c.path(adapterName, adapterVersion, contentHash)) //nolint:gosec // cache path built from hashed components
	if err != nil {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false
	}
	return result, true
}

// Put writes result to the cache for (adapterName, adapterVersion,
// contentHash).
func (c *Cache) Put(adapterName, adapterVersion, contentHash string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling tool adapter cache entry: %w", err)
	}

	final := c.path(adapterName, adapterVersion, contentHash)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil { //nolint:gosec // cache file, not secret
		return fmt.Errorf("writing tool adapter cache entry: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("renaming tool adapter cache entry: %w", err)
	}
	return nil
}

func (c *Cache) path(adapterName, adapterVersion, contentHash string) string {
	key := adapterName + "-" + adapterVersion + "-" + contentHash
	return filepath.Join(c.dir, key+".json")
}
