package memory

import (
	"fmt"
	"runtime"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// Footprint describes what the repository holds and the heap at the time it was taken
type Footprint struct {
	OrderLines   int
	Lots         int
	Allocations  int
	SoftQuantity entities.Quantity
	HardQuantity entities.Quantity
	HeapBytes    uint64

	totalAlloc uint64
}

// Footprint counts the repository contents and samples the process heap
func (r *AllocationRepository) Footprint() Footprint {
	r.mutex.RLock()
	fp := Footprint{
		OrderLines:   len(r.lines),
		Lots:         len(r.lots),
		SoftQuantity: entities.ZeroQuantity,
		HardQuantity: entities.ZeroQuantity,
	}
	for _, line := range r.lines {
		fp.Allocations += len(line.Allocations)
		for _, alloc := range line.Allocations {
			if alloc.Type == entities.Hard {
				fp.HardQuantity = fp.HardQuantity.Add(alloc.Quantity)
			} else {
				fp.SoftQuantity = fp.SoftQuantity.Add(alloc.Quantity)
			}
		}
	}
	r.mutex.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fp.HeapBytes = m.HeapAlloc
	fp.totalAlloc = m.TotalAlloc
	return fp
}

// AllocatedSince is the number of heap bytes allocated between earlier and f
func (f Footprint) AllocatedSince(earlier Footprint) uint64 {
	if f.totalAlloc < earlier.totalAlloc {
		return 0
	}
	return f.totalAlloc - earlier.totalAlloc
}

func (f Footprint) String() string {
	return fmt.Sprintf("%d lines, %d lots, %d allocations (soft %s, hard %s), heap %s",
		f.OrderLines, f.Lots, f.Allocations, f.SoftQuantity, f.HardQuantity, FormatBytes(f.HeapBytes))
}

// FormatBytes renders n with binary units
func FormatBytes(n uint64) string {
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}
