package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room for
// changing the hashed layout.
const (
	DomainState  = "hgsim/state/v1"
	DomainConfig = "hgsim/config/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateHash identifies a hypergraph state by its edges in storage order, its
// degree table and its max node id. Two runs that agree on every step hash
// made identical mutations in identical order.
func StateHash(edges [][]int, degrees []int, maxNodeID int) (string, error) {
	if edges == nil {
		edges = [][]int{}
	}
	if degrees == nil {
		degrees = []int{}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"edges":       edges,
		"degrees":     degrees,
		"max_node_id": maxNodeID,
	})
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// ConfigHash identifies the parameters a run was started with.
func ConfigHash(params map[string]any) (string, error) {
	canonical, err := MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// MustStateHash is like StateHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStateHash(edges [][]int, degrees []int, maxNodeID int) string {
	h, err := StateHash(edges, degrees, maxNodeID)
	if err != nil {
		panic(err)
	}
	return h
}
