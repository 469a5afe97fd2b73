// Package compat exists only to ground, in executable form, the claim that
// SizeCeph is not a Reed-Solomon code (spec §4.1): CompatRSProbe wraps
// github.com/klauspost/reedsolomon the way the teacher's pkg/erasure did, so
// tests in this module can contrast a real (k,m) RS code's "any k of n"
// recoverability against SizeCeph's always-decode, native-validator-gated
// policy side by side.
package compat

import (
	"bytes"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// CompatRSProbe is a minimal (data, total) Reed-Solomon round-tripper.
type CompatRSProbe struct {
	re    reedsolomon.Encoder
	data  int
	total int
}

// NewCompatRSProbe builds a probe with `data` data shards and `total-data`
// parity shards.
func NewCompatRSProbe(data, total int) (*CompatRSProbe, error) {
	if data <= 0 || total < data {
		return nil, fmt.Errorf("invalid shard parameters: data=%d, total=%d", data, total)
	}
	re, err := reedsolomon.New(data, total-data)
	if err != nil {
		return nil, fmt.Errorf("create RS encoder: %w", err)
	}
	return &CompatRSProbe{re: re, data: data, total: total}, nil
}

// Encode splits input into p.total shards, p.data of them data shards.
func (p *CompatRSProbe) Encode(input []byte) ([][]byte, int, error) {
	shards, err := p.re.Split(input)
	if err != nil {
		return nil, 0, fmt.Errorf("split data into shards: %w", err)
	}
	if err := p.re.Encode(shards); err != nil {
		return nil, 0, fmt.Errorf("encode parity shards: %w", err)
	}
	return shards, len(input), nil
}

// Decode reconstructs outSize bytes from shards (nil entries denote losses),
// succeeding as long as at least p.data of them survive — the "any k of n"
// rule SizeCeph's always-decode policy deliberately does not follow.
func (p *CompatRSProbe) Decode(shards [][]byte, outSize int) ([]byte, error) {
	if len(shards) != p.total {
		return nil, fmt.Errorf("expected %d shards, got %d", p.total, len(shards))
	}
	if err := p.re.Reconstruct(shards); err != nil {
		return nil, fmt.Errorf("reconstruct shards: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := p.re.Join(buf, shards, outSize); err != nil {
		return nil, fmt.Errorf("join shards: %w", err)
	}
	return buf.Bytes(), nil
}
