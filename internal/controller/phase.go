package controller

import "fmt"

// Phase is the active stage of a controller's state machine.
type Phase int

const (
	PhaseApproach Phase = iota
	PhaseLower
	PhasePush
	PhaseSeek
	PhaseSeekLift
	PhaseMPC
)

// AllPhases lists every phase in declaration order.
var AllPhases = []Phase{PhaseApproach, PhaseLower, PhasePush, PhaseSeek, PhaseSeekLift, PhaseMPC}

func (p Phase) String() string {
	switch p {
	case PhaseApproach:
		return "approach"
	case PhaseLower:
		return "lower"
	case PhasePush:
		return "push"
	case PhaseSeek:
		return "seek"
	case PhaseSeekLift:
		return "seek_lift"
	case PhaseMPC:
		return "mpc"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range AllPhases {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("controller: unknown phase %q", s)
}
