// SPDX-FileCopyrightText: Copyright (c) 2024 reposync authors
// SPDX-License-Identifier: Apache-2.0

// Package config decodes the TOML document that drives a reposync
// run: one or more repositories, each with a source/destination URL
// template pair and an optional tag-variant table.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"go.reposync.dev/reposync/internal/pkg/log"
	"go.reposync.dev/reposync/internal/pkg/reposyncerr"
)

// RepoConfig is one `[[repo]]` table: a TagMux template pair plus its
// tag-variant map.
type RepoConfig struct {
	Src  string              `toml:"src"`
	Dest string              `toml:"dest"`
	Tags map[string][]string `toml:"tags"`
}

// Config is the whole decoded document.
type Config struct {
	Repos []RepoConfig `toml:"repo"`
	Log   log.Config   `toml:"log"`
}

// Load reads and decodes path. A missing or malformed file is always
// a ConfigError: it is the one failure mode fatal to the whole
// process rather than isolated to a single repository pair.
func Load(path string) (*Config, error) {
	cfg := &Config{Log: log.Default()}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w: %w", path, reposyncerr.ErrConfig, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("loading %s: unrecognized keys %v: %w", path, undecoded, reposyncerr.ErrConfig)
	}

	if len(cfg.Repos) == 0 {
		return nil, fmt.Errorf("loading %s: no [[repo]] entries: %w", path, reposyncerr.ErrConfig)
	}
	for i, repo := range cfg.Repos {
		if repo.Src == "" || repo.Dest == "" {
			return nil, fmt.Errorf("loading %s: repo[%d] missing src or dest: %w", path, i, reposyncerr.ErrConfig)
		}
	}

	return cfg, nil
}
