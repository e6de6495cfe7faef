package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrEmptyVector = errors.New("vectors cannot be empty")

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero-magnitude vectors have similarity 0.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same dimension (%d != %d)", len(a), len(b))
	}

	var dot, sumA, sumB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		sumA += float64(a[i]) * float64(a[i])
		sumB += float64(b[i]) * float64(b[i])
	}
	if sumA == 0 || sumB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(sumA) * math.Sqrt(sumB))), nil
}

// CosineDistance is 1 - CosineSimilarity; lower is closer.
func CosineDistance(a, b []float32) (float32, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// EncodeEmbedding serializes an embedding for a TEXT column.
func EncodeEmbedding(v []float32) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return string(b), nil
}

// DecodeEmbedding is the inverse of EncodeEmbedding. An empty string yields nil.
func DecodeEmbedding(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return v, nil
}
