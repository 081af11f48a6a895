// Copyright 2025 James Ross
// Package reqentity holds the inputs needed to execute a request. Entities
// are immutable once constructed; this package does no merging of
// client-supplied overrides with config.DefaultRequestConfig, so any such
// merge is done by the caller before construction.
package reqentity

import (
	"encoding/json"

	"github.com/blockprover/orchestrator/internal/reqkey"
)

// SingleProofEntity is the input to a single-block proof.
type SingleProofEntity struct {
	BlockNumber   uint64
	NetworkID     uint64
	L1NetworkID   uint64
	Graffiti      string
	ProverAddress string
	ProofType     reqkey.ProofType
	ProverArgs    json.RawMessage // opaque, prover-specific; validated in internal/proofschema
	BlobProofVariant string
}

// SubProof is an already-produced proof for one sub-request, referenced by
// value from an AggregationEntity.
type SubProof struct {
	Key      reqkey.RequestKey
	Artifact []byte
}

// AggregationEntity is the input to an aggregation proof over a set of
// already-completed sub-proofs. The core does not orchestrate the
// sub-proof dependency graph (spec §4.3, §9); by the time an
// AggregationEntity reaches the Pool, all sub-proofs are already in hand.
type AggregationEntity struct {
	SubProofs     []SubProof
	ProofType     reqkey.ProofType
	ProverAddress string
	ProverArgs    json.RawMessage
}

// RequestEntity is the discriminated union over the two entity kinds,
// mirroring reqkey.RequestKey.
type RequestEntity struct {
	Kind        reqkey.Kind
	Single      SingleProofEntity
	Aggregation AggregationEntity
}

// NewSingleProofEntity wraps a SingleProofEntity.
func NewSingleProofEntity(e SingleProofEntity) RequestEntity {
	return RequestEntity{Kind: reqkey.KindSingleProof, Single: e}
}

// NewAggregationEntity wraps an AggregationEntity.
func NewAggregationEntity(e AggregationEntity) RequestEntity {
	return RequestEntity{Kind: reqkey.KindAggregation, Aggregation: e}
}

// ProofType returns the proof-type tag regardless of variant.
func (e RequestEntity) ProofType() reqkey.ProofType {
	if e.Kind == reqkey.KindAggregation {
		return e.Aggregation.ProofType
	}
	return e.Single.ProofType
}

// ProverArgs returns the opaque prover-specific args blob regardless of
// variant, for schema validation at admission time.
func (e RequestEntity) ProverArgs() json.RawMessage {
	if e.Kind == reqkey.KindAggregation {
		return e.Aggregation.ProverArgs
	}
	return e.Single.ProverArgs
}
