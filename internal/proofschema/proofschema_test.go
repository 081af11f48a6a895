// Copyright 2025 James Ross
package proofschema_test

import (
	"encoding/json"
	"testing"

	"github.com/blockprover/orchestrator/internal/proofschema"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/stretchr/testify/require"
)

const sp1Schema = `{
  "type": "object",
  "properties": {
    "max_cycles": {"type": "integer", "minimum": 1}
  },
  "required": ["max_cycles"]
}`

func TestValidateAcceptsConformingArgs(t *testing.T) {
	reg := proofschema.NewRegistry()
	require.NoError(t, reg.RegisterSchema(reqkey.ProofTypeSP1, []byte(sp1Schema)))

	args, err := json.Marshal(map[string]any{"max_cycles": 1000})
	require.NoError(t, err)
	require.NoError(t, reg.Validate(reqkey.ProofTypeSP1, args))
}

func TestValidateRejectsNonConformingArgs(t *testing.T) {
	reg := proofschema.NewRegistry()
	require.NoError(t, reg.RegisterSchema(reqkey.ProofTypeSP1, []byte(sp1Schema)))

	args, err := json.Marshal(map[string]any{"max_cycles": -1})
	require.NoError(t, err)

	err = reg.Validate(reqkey.ProofTypeSP1, args)
	require.Error(t, err)
	var verr *proofschema.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, reqkey.ProofTypeSP1, verr.ProofType)
	require.NotEmpty(t, verr.Errors)
}

func TestValidateUnregisteredProofTypePasses(t *testing.T) {
	reg := proofschema.NewRegistry()
	require.NoError(t, reg.Validate(reqkey.ProofTypeNative, json.RawMessage(`{"anything": true}`)))
}

func TestValidateEmptyArgsTreatedAsEmptyObject(t *testing.T) {
	reg := proofschema.NewRegistry()
	require.NoError(t, reg.RegisterSchema(reqkey.ProofTypeNative, []byte(`{"type":"object"}`)))
	require.NoError(t, reg.Validate(reqkey.ProofTypeNative, nil))
}
