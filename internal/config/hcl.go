// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Load parses an HCL options file into a fully-defaulted Options value:
// Default() is decoded over, so an absent field keeps its documented
// default rather than zeroing out (mirrors the teacher's
// hclsimple.Decode(filename, data, nil, &cfg) pattern).
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options file %s: %w", path, err)
	}
	return LoadBytes(path, data)
}

// LoadBytes parses HCL source already in memory (used by Load and by
// tests).
func LoadBytes(filename string, data []byte) (*Options, error) {
	cfg := *Default()
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, fmt.Errorf("parsing options file %s: %w", filename, err)
	}
	return &cfg, nil
}
