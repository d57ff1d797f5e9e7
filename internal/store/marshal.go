package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/hgsim/internal/ir"
)

// encodingZstdJSON marks snapshot data as zstd-compressed canonical JSON.
const encodingZstdJSON = "zstd+json"

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// marshalParams converts run parameters to canonical JSON TEXT.
func marshalParams(p ir.RunParams) (string, error) {
	data, err := ir.MarshalCanonical(p.Map())
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalParams(data string) (ir.RunParams, error) {
	var p ir.RunParams
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return ir.RunParams{}, fmt.Errorf("unmarshal params: %w", err)
	}
	return p, nil
}

// marshalStep converts a step record to canonical JSON TEXT.
func marshalStep(rec ir.StepRecord) (string, error) {
	data, err := ir.MarshalCanonical(rec.Map())
	if err != nil {
		return "", fmt.Errorf("marshal step: %w", err)
	}
	return string(data), nil
}

func unmarshalStep(data string) (ir.StepRecord, error) {
	var rec ir.StepRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return ir.StepRecord{}, fmt.Errorf("unmarshal step: %w", err)
	}
	return rec, nil
}

// compressSnapshot encodes a snapshot as canonical JSON and compresses it.
func compressSnapshot(snap ir.Snapshot) ([]byte, error) {
	edges := snap.Edges
	if edges == nil {
		edges = [][]int{}
	}
	degrees := snap.Degrees
	if degrees == nil {
		degrees = []int{}
	}
	raw, err := ir.MarshalCanonical(map[string]any{
		"run_id":      snap.RunID,
		"step":        snap.Step,
		"edges":       edges,
		"degrees":     degrees,
		"max_node_id": snap.MaxNodeID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(raw, nil), nil
}

func decompressSnapshot(encoding string, data []byte) (ir.Snapshot, error) {
	if encoding != encodingZstdJSON {
		return ir.Snapshot{}, fmt.Errorf("unsupported snapshot encoding %q", encoding)
	}

	dec := getZstdDecoder()
	defer zstdDecoderPool.Put(dec)
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("decompress snapshot: %w", err)
	}

	var snap ir.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return ir.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}
