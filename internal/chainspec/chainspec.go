// Copyright 2025 James Ross
// Package chainspec loads the chain_specs table named by spec.md §6
// (chain id -> known-chain metadata) from a YAML side file. The Gateway
// holds the resulting Table immutably for the life of the process
// (spec §4.4).
package chainspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec describes one known chain. SyncMode and ForkSchedule are placeholders
// a production deployment would extend. The core reads none of these
// fields: the Gateway only holds the Table and hands it out via ChainSpecs.
type Spec struct {
	Name         string `yaml:"name"`
	L1ChainID    uint64 `yaml:"l1_chain_id"`
	SyncMode     string `yaml:"sync_mode"`
	ForkSchedule []Fork `yaml:"fork_schedule"`
}

// Fork names a single protocol upgrade's activation block.
type Fork struct {
	Name        string `yaml:"name"`
	BlockNumber uint64 `yaml:"block_number"`
}

// Table maps chain id to its Spec.
type Table map[uint64]Spec

// Load reads a Table from a YAML document at path.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chainspec: read %s: %w", path, err)
	}
	var raw map[string]Spec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("chainspec: parse %s: %w", path, err)
	}
	table := make(Table, len(raw))
	for idStr, spec := range raw {
		var chainID uint64
		if _, err := fmt.Sscanf(idStr, "%d", &chainID); err != nil {
			return nil, fmt.Errorf("chainspec: chain id %q is not numeric: %w", idStr, err)
		}
		table[chainID] = spec
	}
	return table, nil
}

// Get looks up a chain id.
func (t Table) Get(chainID uint64) (Spec, bool) {
	s, ok := t[chainID]
	return s, ok
}
