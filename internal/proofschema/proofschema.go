// Copyright 2025 James Ross
// Package proofschema validates the opaque prover-args blob (spec.md §3.1)
// against a per-proof-type JSON Schema before a request reaches the Pool,
// giving concrete shape to spec.md §7's "Admission errors: malformed
// request" case. A request whose args fail validation never touches the
// Pool.
package proofschema

import (
	"encoding/json"
	"fmt"

	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports why prover args were rejected at admission.
type ValidationError struct {
	ProofType reqkey.ProofType
	Errors    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("proofschema: invalid prover args for %q: %v", e.ProofType, e.Errors)
}

// Registry holds one compiled JSON Schema per proof type. Proof types with
// no registered schema are accepted unvalidated, so a deployment can adopt
// schemas incrementally.
type Registry struct {
	schemas map[reqkey.ProofType]*gojsonschema.Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[reqkey.ProofType]*gojsonschema.Schema)}
}

// RegisterSchema compiles schemaJSON and binds it to proofType.
func (r *Registry) RegisterSchema(proofType reqkey.ProofType, schemaJSON []byte) error {
	loader := gojsonschema.NewBytesLoader(schemaJSON)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return fmt.Errorf("proofschema: compile schema for %q: %w", proofType, err)
	}
	r.schemas[proofType] = schema
	return nil
}

// Validate checks proverArgs against the schema registered for proofType.
// A proof type with no registered schema always validates.
func (r *Registry) Validate(proofType reqkey.ProofType, proverArgs json.RawMessage) error {
	schema, ok := r.schemas[proofType]
	if !ok {
		return nil
	}
	if len(proverArgs) == 0 {
		proverArgs = json.RawMessage("{}")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(proverArgs))
	if err != nil {
		return fmt.Errorf("proofschema: validate %q args: %w", proofType, err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return &ValidationError{ProofType: proofType, Errors: errs}
}
