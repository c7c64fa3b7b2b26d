package lifecycle

import (
	"time"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/enums"
	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
)

type transition struct {
	Status    enums.PairingStatus
	Slot      model.Slot
	Completed bool
}

// applySubmission mutates p with one participant's photo submission and
// returns the transition taken. The photo reference and its timestamp are
// written together; a slot that already holds a reference rejects the
// write rather than overwriting it. Expiry is deliberately not checked
// here: a submission that lands after the deadline but before the sweep
// still counts.
func applySubmission(p *model.Pairing, participantID int64, photoRef string, now time.Time) (transition, error) {
	slot, ok := p.SlotOf(participantID)
	if !ok {
		return transition{}, ErrNotAParticipant
	}
	if p.Status.Terminal() {
		return transition{}, ErrAlreadyTerminal
	}
	if p.Submitted(slot) {
		return transition{}, ErrAlreadySubmitted
	}

	submittedAt := now.UTC()
	if slot == model.SlotA {
		p.SlotAPhotoRef = &photoRef
		p.SlotASubmittedAt = &submittedAt
	} else {
		p.SlotBPhotoRef = &photoRef
		p.SlotBSubmittedAt = &submittedAt
	}

	tr := transition{Slot: slot}
	other := model.SlotB
	if slot == model.SlotB {
		other = model.SlotA
	}

	if p.Submitted(other) {
		tr.Status = enums.PairingStatusCompleted
		tr.Completed = true
		completedAt := submittedAt
		p.CompletedAt = &completedAt
	} else if slot == model.SlotA {
		tr.Status = enums.PairingStatusSlotASubmitted
	} else {
		tr.Status = enums.PairingStatusSlotBSubmitted
	}

	p.Status = tr.Status
	return tr, nil
}
