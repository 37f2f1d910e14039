package testutil

import (
	"context"
	"testing"
)

func TestMockEmbedOrderAndDimension(t *testing.T) {
	m := &MockClient{}

	vectors, err := m.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != MockDimensions {
			t.Errorf("vector %d has %d dimensions, want %d", i, len(vec), MockDimensions)
		}
	}

	// Same input always embeds to the same vector, and order follows the
	// inputs.
	again, err := m.Embed(context.Background(), []string{"b", "a"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	assertEqualVec(t, vectors[0], again[1])
	assertEqualVec(t, vectors[1], again[0])
}

func assertEqualVec(t *testing.T, a, b []float32) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
