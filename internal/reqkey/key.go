// Copyright 2025 James Ross
// Package reqkey defines the identity of a provable unit of work: the
// closed set of proof-type tags, the two request-key variants, and their
// canonical, byte-stable textual encoding.
//
// The encoding is the join point between the scheduler queue (which keys
// an in-memory map by it), the Pool (which keys both the memory and the
// Redis-TTL backend by it), and anything that logs or reports on a
// request. Two keys identify the same work iff their Encode() strings are
// equal; RequestKey is intentionally not used as a Go map key directly
// because AggregationKey carries a slice.
package reqkey

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ProofType is the closed-set tag naming a backend proving capability.
// Adding a tag requires updating the prover registry; this package treats
// tags opaquely past validation.
type ProofType string

const (
	ProofTypeNative ProofType = "native"
	ProofTypeSP1    ProofType = "sp1"
	ProofTypeSGX    ProofType = "sgx"
	ProofTypeRisc0  ProofType = "risc0"
	ProofTypeOpenVM ProofType = "openvm"
	ProofTypeZisk   ProofType = "zisk"
	ProofTypePowdr  ProofType = "powdr"
	ProofTypeBrevis ProofType = "brevis"
)

var validProofTypes = map[ProofType]struct{}{
	ProofTypeNative: {}, ProofTypeSP1: {}, ProofTypeSGX: {}, ProofTypeRisc0: {},
	ProofTypeOpenVM: {}, ProofTypeZisk: {}, ProofTypePowdr: {}, ProofTypeBrevis: {},
}

// Valid reports whether p is a recognized proof-type tag.
func (p ProofType) Valid() bool {
	_, ok := validProofTypes[p]
	return ok
}

// Kind distinguishes the two RequestKey variants.
type Kind uint8

const (
	KindSingleProof Kind = iota
	KindAggregation
)

func (k Kind) String() string {
	if k == KindAggregation {
		return "aggregation"
	}
	return "single_proof"
}

// SingleProofKey identifies a proof for one block, by one prover, under one
// proof type. All fields are value-typed and the struct is comparable, so
// it may additionally be used directly as a Go map key when callers happen
// to know they only ever hold single-proof keys (the scheduler and Pool
// still index by Encode() so both variants share one key space).
type SingleProofKey struct {
	ChainID       uint64
	BlockNumber   uint64
	BlockHash     string // lowercase hex, with or without 0x prefix
	ProofType     ProofType
	ProverAddress string // lowercase hex address
}

func normalizeHex(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "0x"))
	return s
}

func (k SingleProofKey) encode() string {
	return fmt.Sprintf("single:%s:%d:%d:%s:%s",
		k.ProofType, k.ChainID, k.BlockNumber,
		normalizeHex(k.BlockHash), normalizeHex(k.ProverAddress))
}

// AggregationKey identifies an aggregation proof over an already-sorted
// sequence of block numbers. NewAggregationKey sorts a defensive copy so
// that equal sets always encode identically regardless of submission
// order.
type AggregationKey struct {
	ProofType    ProofType
	BlockNumbers []uint64
}

// NewAggregationKey builds an AggregationKey, sorting a copy of blockNumbers.
func NewAggregationKey(proofType ProofType, blockNumbers []uint64) AggregationKey {
	sorted := make([]uint64, len(blockNumbers))
	copy(sorted, blockNumbers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return AggregationKey{ProofType: proofType, BlockNumbers: sorted}
}

func (k AggregationKey) encode() string {
	parts := make([]string, len(k.BlockNumbers))
	for i, n := range k.BlockNumbers {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return fmt.Sprintf("aggregation:%s:%s", k.ProofType, strings.Join(parts, ","))
}

// RequestKey is the discriminated union over SingleProofKey and
// AggregationKey described by spec §3.1. Exactly one of Single /
// Aggregation is meaningful, selected by Kind.
type RequestKey struct {
	Kind        Kind
	Single      SingleProofKey
	Aggregation AggregationKey
}

// NewSingleProofKey builds a RequestKey wrapping a SingleProofKey.
func NewSingleProofKey(k SingleProofKey) RequestKey {
	return RequestKey{Kind: KindSingleProof, Single: k}
}

// NewAggregationRequestKey builds a RequestKey wrapping an AggregationKey.
func NewAggregationRequestKey(k AggregationKey) RequestKey {
	return RequestKey{Kind: KindAggregation, Aggregation: k}
}

// Encode returns the canonical, byte-stable textual form of the key. It is
// used as the map key in the scheduler queue and as the storage key in
// both Pool backends, so that tests (memory backend) and production
// (Redis-TTL backend) observe the same key space.
func (k RequestKey) Encode() string {
	if k.Kind == KindAggregation {
		return k.Aggregation.encode()
	}
	return k.Single.encode()
}

// ProofType returns the proof-type tag regardless of variant.
func (k RequestKey) ProofType() ProofType {
	if k.Kind == KindAggregation {
		return k.Aggregation.ProofType
	}
	return k.Single.ProofType
}

// Equal reports whether two keys identify the same work.
func (k RequestKey) Equal(other RequestKey) bool {
	return k.Encode() == other.Encode()
}

// Less gives RequestKey a deterministic total order, by comparing the
// canonical encoding byte-wise. Used only for stable test output and
// report sorting; queue admission order is FIFO, not key order.
func (k RequestKey) Less(other RequestKey) bool {
	return k.Encode() < other.Encode()
}

func (k RequestKey) String() string {
	return k.Encode()
}

type wireKey struct {
	Kind        string         `json:"kind"`
	Single      *SingleProofKey `json:"single,omitempty"`
	Aggregation *AggregationKey `json:"aggregation,omitempty"`
}

// MarshalJSON implements a tagged-union encoding so RequestKey round-trips
// bitwise-equal (spec §8 L1), unlike Encode() which is lossy about
// hash/address casing normalization.
func (k RequestKey) MarshalJSON() ([]byte, error) {
	w := wireKey{Kind: k.Kind.String()}
	if k.Kind == KindAggregation {
		w.Aggregation = &k.Aggregation
	} else {
		w.Single = &k.Single
	}
	return json.Marshal(w)
}

func (k *RequestKey) UnmarshalJSON(data []byte) error {
	var w wireKey
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case "aggregation":
		if w.Aggregation == nil {
			return fmt.Errorf("reqkey: missing aggregation payload")
		}
		k.Kind = KindAggregation
		k.Aggregation = *w.Aggregation
	case "single_proof":
		if w.Single == nil {
			return fmt.Errorf("reqkey: missing single_proof payload")
		}
		k.Kind = KindSingleProof
		k.Single = *w.Single
	default:
		return fmt.Errorf("reqkey: unknown kind %q", w.Kind)
	}
	return nil
}

// DecodeHexBytes is a small helper used by prover implementations that need
// the raw block hash bytes rather than its hex form.
func DecodeHexBytes(hexStr string) ([]byte, error) {
	return hex.DecodeString(normalizeHex(hexStr))
}

// ParseEncoded reverses Encode. It is used by report tooling (e.g. the
// Redis-TTL Pool's ListStatus) that only has the stored key string and
// needs the structured RequestKey back. It is lossy for single-proof keys:
// Encode drops any "0x" prefix and lowercases the block hash and prover
// address, so the parsed key carries them in that normalized form. The
// parsed key is still Equal to the original.
func ParseEncoded(s string) (RequestKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) == 0 {
		return RequestKey{}, fmt.Errorf("reqkey: empty encoded key")
	}
	switch parts[0] {
	case "single":
		if len(parts) != 6 {
			return RequestKey{}, fmt.Errorf("reqkey: malformed single_proof key %q", s)
		}
		chainID, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return RequestKey{}, fmt.Errorf("reqkey: bad chain id in %q: %w", s, err)
		}
		blockNumber, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			return RequestKey{}, fmt.Errorf("reqkey: bad block number in %q: %w", s, err)
		}
		return NewSingleProofKey(SingleProofKey{
			ChainID:       chainID,
			BlockNumber:   blockNumber,
			BlockHash:     parts[4],
			ProofType:     ProofType(parts[1]),
			ProverAddress: parts[5],
		}), nil
	case "aggregation":
		if len(parts) != 3 {
			return RequestKey{}, fmt.Errorf("reqkey: malformed aggregation key %q", s)
		}
		var blockNumbers []uint64
		if parts[2] != "" {
			for _, p := range strings.Split(parts[2], ",") {
				n, err := strconv.ParseUint(p, 10, 64)
				if err != nil {
					return RequestKey{}, fmt.Errorf("reqkey: bad block number in %q: %w", s, err)
				}
				blockNumbers = append(blockNumbers, n)
			}
		}
		return NewAggregationRequestKey(NewAggregationKey(ProofType(parts[1]), blockNumbers)), nil
	default:
		return RequestKey{}, fmt.Errorf("reqkey: unknown key variant in %q", s)
	}
}
