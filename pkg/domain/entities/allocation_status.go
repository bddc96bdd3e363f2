package entities

// AllocationStatus summarises how an order line's persisted allocations are reserved
type AllocationStatus int

const (
	Unallocated AllocationStatus = iota
	SoftAllocated
	HardAllocated
	MixedAllocated
)

// String method for AllocationStatus enum
func (s AllocationStatus) String() string {
	switch s {
	case Unallocated:
		return "unallocated"
	case SoftAllocated:
		return "soft"
	case HardAllocated:
		return "hard"
	case MixedAllocated:
		return "mixed"
	default:
		return "unknown"
	}
}

// Label is the badge text shown for the status
func (s AllocationStatus) Label() string {
	switch s {
	case Unallocated:
		return "Unallocated"
	case SoftAllocated:
		return "Soft allocated"
	case HardAllocated:
		return "Hard allocated"
	case MixedAllocated:
		return "Partially confirmed"
	default:
		return "Unknown"
	}
}
