// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pushrule

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// ParseRuleset strips JSONC comments and trailing commas from data and
// decodes a ruleset. The document is either a bare ruleset object or
// the {"global": {...}} envelope servers return from /pushrules.
func ParseRuleset(data []byte) (*Ruleset, error) {
	stripped := jsonc.ToJSON(data)

	var envelope struct {
		Global *Ruleset `json:"global"`
	}
	if err := json.Unmarshal(stripped, &envelope); err != nil {
		return nil, fmt.Errorf("parsing push rules: %w", err)
	}
	if envelope.Global != nil {
		return envelope.Global, nil
	}

	var ruleset Ruleset
	if err := json.Unmarshal(stripped, &ruleset); err != nil {
		return nil, fmt.Errorf("parsing push rules: %w", err)
	}
	return &ruleset, nil
}

// LoadRuleset reads a JSONC ruleset file from disk.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	ruleset, err := ParseRuleset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ruleset, nil
}
