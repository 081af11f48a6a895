// Copyright 2025 James Ross
package reqactor

import (
	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqkey"
)

func reqentityStub() reqentity.RequestEntity {
	return reqentity.NewSingleProofEntity(reqentity.SingleProofEntity{
		BlockNumber: 1, NetworkID: 1, ProverAddress: "0x01", ProofType: reqkey.ProofTypeNative,
	})
}
