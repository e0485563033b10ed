package domain

import (
	"encoding/json"
	"testing"
)

func TestDefaultSearchOptions(t *testing.T) {
	opts := DefaultSearchOptions()

	if opts.TopK != 5 {
		t.Errorf("expected default top_k 5, got %d", opts.TopK)
	}
	if opts.Threshold == nil || *opts.Threshold != 0.45 {
		t.Errorf("expected default threshold 0.45, got %v", opts.Threshold)
	}
}

func TestSearchOptionsThresholdJSON(t *testing.T) {
	var unset SearchOptions
	if err := json.Unmarshal([]byte(`{"top_k":3}`), &unset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unset.Threshold != nil {
		t.Errorf("expected omitted threshold to stay nil, got %v", *unset.Threshold)
	}

	var zero SearchOptions
	if err := json.Unmarshal([]byte(`{"threshold":0}`), &zero); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zero.Threshold == nil || *zero.Threshold != 0 {
		t.Errorf("expected explicit zero threshold, got %v", zero.Threshold)
	}
}

func TestSearchResultEmpty(t *testing.T) {
	var nilResult *SearchResult
	if !nilResult.Empty() {
		t.Error("nil result should be empty")
	}
	if !(&SearchResult{}).Empty() {
		t.Error("result without matches should be empty")
	}
	if (&SearchResult{Matches: []Match{{Title: "a", Score: 0.9}}}).Empty() {
		t.Error("result with matches should not be empty")
	}
}

func TestZeroVector(t *testing.T) {
	v := ZeroVector(1536)
	if len(v) != 1536 {
		t.Fatalf("expected 1536 dims, got %d", len(v))
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("expected zero at %d, got %v", i, x)
		}
	}
}
