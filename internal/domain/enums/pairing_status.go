package enums

type PairingStatus string

const (
	PairingStatusPending        PairingStatus = "pending"
	PairingStatusSlotASubmitted PairingStatus = "slot_a_submitted"
	PairingStatusSlotBSubmitted PairingStatus = "slot_b_submitted"
	PairingStatusCompleted      PairingStatus = "completed"
	PairingStatusFlaked         PairingStatus = "flaked"
	PairingStatusReplaced       PairingStatus = "replaced"
)

func (s PairingStatus) Valid() bool {
	switch s {
	case PairingStatusPending,
		PairingStatusSlotASubmitted,
		PairingStatusSlotBSubmitted,
		PairingStatusCompleted,
		PairingStatusFlaked,
		PairingStatusReplaced:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further lifecycle transition is allowed.
func (s PairingStatus) Terminal() bool {
	switch s {
	case PairingStatusCompleted, PairingStatusFlaked, PairingStatusReplaced:
		return true
	default:
		return false
	}
}
