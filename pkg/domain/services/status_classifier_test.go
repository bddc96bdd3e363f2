package services

import (
	"testing"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

func TestClassifyAllocation(t *testing.T) {
	tests := []struct {
		name     string
		soft     int64
		hard     int64
		expected entities.AllocationStatus
	}{
		{"nothing_allocated", 0, 0, entities.Unallocated},
		{"soft_only", 10, 0, entities.SoftAllocated},
		{"hard_only", 0, 10, entities.HardAllocated},
		{"mixed", 5, 10, entities.MixedAllocated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyAllocation(qty(tt.soft), qty(tt.hard))
			if result != tt.expected {
				t.Errorf("ClassifyAllocation(%d, %d) = %s, want %s",
					tt.soft, tt.hard, result, tt.expected)
			}
		})
	}
}

func TestClassifyAllocations(t *testing.T) {
	if got := ClassifyAllocations(sampleAllocations()); got != entities.MixedAllocated {
		t.Errorf("Expected mixed, got %s", got)
	}
	if got := ClassifyAllocations(nil); got != entities.Unallocated {
		t.Errorf("Expected unallocated, got %s", got)
	}
}
