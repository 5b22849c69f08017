package types

// VoteTarget names the kind of entity a vote applies to.
type VoteTarget string

const (
	VoteTargetQuestion VoteTarget = "question"
	VoteTargetAnswer   VoteTarget = "answer"
)

// Valid reports whether t is a known target kind.
func (t VoteTarget) Valid() bool {
	return t == VoteTargetQuestion || t == VoteTargetAnswer
}

// VoteDirection is an up or down vote.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Delta returns the signed score change of the direction, or 0 when the
// direction is unknown.
func (d VoteDirection) Delta() int {
	switch d {
	case VoteUp:
		return 1
	case VoteDown:
		return -1
	default:
		return 0
	}
}
