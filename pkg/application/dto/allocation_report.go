package dto

import (
	"time"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// LineReport summarizes what happened to one order line in a batch run
type LineReport struct {
	OrderLineID    entities.OrderLineID    `json:"order_line_id"`
	ProductID      entities.ProductID      `json:"product_id"`
	Unit           string                  `json:"unit,omitempty"`
	CandidateCount int                     `json:"candidate_count"`
	Totals         AllocationTotals        `json:"totals"`
	Status         string                  `json:"status"`
	StatusLabel    string                  `json:"status_label"`
	Shortfall      entities.Quantity       `json:"shortfall"`
	Draft          []entities.DraftEntry   `json:"draft"`
	Operation      string                  `json:"operation,omitempty"`
	Outcome        string                  `json:"outcome,omitempty"`
	AllocationIDs  []entities.AllocationID `json:"allocation_ids,omitempty"`
	FailedIDs      []entities.AllocationID `json:"failed_ids,omitempty"`
	Notices        []string                `json:"notices,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

// AllocationReport is the result of running one mode over a set of order lines
type AllocationReport struct {
	Mode           string        `json:"mode"`
	Lines          []LineReport  `json:"lines"`
	EventCount     int           `json:"event_count"`
	CommitFailures int           `json:"commit_failures"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// FailedLines counts lines whose load or commit failed
func (r *AllocationReport) FailedLines() int {
	failed := 0
	for _, line := range r.Lines {
		if line.Error != "" {
			failed++
		}
	}
	return failed
}
