// Copyright 2025 James Ross
package reqkey_test

import (
	"encoding/json"
	"testing"

	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/stretchr/testify/require"
)

func TestSingleProofKeyJSONRoundTrip(t *testing.T) {
	key := reqkey.NewSingleProofKey(reqkey.SingleProofKey{
		ChainID:       167000,
		BlockNumber:   42,
		BlockHash:     "0xABCDEF",
		ProofType:     reqkey.ProofTypeSP1,
		ProverAddress: "0x1234",
	})

	data, err := json.Marshal(key)
	require.NoError(t, err)

	var out reqkey.RequestKey
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, key.Equal(out))
	require.Equal(t, key, out)
}

func TestAggregationKeyJSONRoundTrip(t *testing.T) {
	key := reqkey.NewAggregationRequestKey(reqkey.NewAggregationKey(reqkey.ProofTypeNative, []uint64{5, 3, 4}))

	data, err := json.Marshal(key)
	require.NoError(t, err)

	var out reqkey.RequestKey
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, key.Equal(out))
	require.Equal(t, []uint64{3, 4, 5}, out.Aggregation.BlockNumbers)
}

func TestEncodeParseRoundTrip(t *testing.T) {
	cases := []reqkey.RequestKey{
		reqkey.NewSingleProofKey(reqkey.SingleProofKey{
			ChainID: 1, BlockNumber: 10, BlockHash: "aa", ProofType: reqkey.ProofTypeRisc0, ProverAddress: "bb",
		}),
		reqkey.NewAggregationRequestKey(reqkey.NewAggregationKey(reqkey.ProofTypeZisk, []uint64{1, 2, 3})),
	}
	for _, key := range cases {
		parsed, err := reqkey.ParseEncoded(key.Encode())
		require.NoError(t, err)
		require.True(t, key.Equal(parsed))
	}
}

func TestAggregationKeyOrderIndependentEncoding(t *testing.T) {
	a := reqkey.NewAggregationRequestKey(reqkey.NewAggregationKey(reqkey.ProofTypeNative, []uint64{3, 1, 2}))
	b := reqkey.NewAggregationRequestKey(reqkey.NewAggregationKey(reqkey.ProofTypeNative, []uint64{1, 2, 3}))
	require.Equal(t, a.Encode(), b.Encode())
}

func TestProofTypeValid(t *testing.T) {
	require.True(t, reqkey.ProofTypeSGX.Valid())
	require.False(t, reqkey.ProofType("bogus").Valid())
}
