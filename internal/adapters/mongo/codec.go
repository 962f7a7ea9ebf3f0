package mongo

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// compressEmbedding packs a dense vector as zlib-compressed little-endian
// float32 values. Stored embeddings routinely dominate document size, so
// they go through compression on the way in.
func compressEmbedding(vector []float32) ([]byte, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	raw := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress embedding: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress embedding: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressEmbedding is the inverse of compressEmbedding.
func decompressEmbedding(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress embedding: %w", err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress embedding: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding payload: %d bytes", len(raw))
	}
	vector := make([]float32, len(raw)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vector, nil
}
