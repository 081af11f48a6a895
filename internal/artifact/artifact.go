// Copyright 2025 James Ross
// Package artifact compresses proof artifacts before they are written to
// the Redis-TTL pool backend, and decompresses them on read. Proof blobs
// are the largest values the pool ever stores; compressing them keeps the
// backend's memory footprint from being dominated by a handful of large
// successes.
package artifact

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compress returns a zstd-compressed copy of b. An empty input compresses
// to an empty output without invoking the encoder, so that absent proofs
// (non-Success statuses) cost nothing.
func Compress(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("artifact: new encoder: %w", err)
	}
	if _, err := enc.Write(b); err != nil {
		enc.Close()
		return nil, fmt.Errorf("artifact: compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("artifact: close encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("artifact: new decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("artifact: decompress: %w", err)
	}
	return out, nil
}
