package hedge

type Phase string

const (
	PhaseIdle              Phase = "IDLE"
	PhaseCheckingFills     Phase = "CHECKING_FILLS"
	PhaseCancelling        Phase = "CANCELLING"
	PhaseRefreshingAccount Phase = "REFRESHING_ACCOUNT"
	PhaseBuildingLadder    Phase = "BUILDING_LADDER"
	PhaseSizing            Phase = "SIZING"
	PhasePlacing           Phase = "PLACING"
)

var cycleOrder = []Phase{
	PhaseIdle,
	PhaseCheckingFills,
	PhaseCancelling,
	PhaseRefreshingAccount,
	PhaseBuildingLadder,
	PhaseSizing,
	PhasePlacing,
}

// nextPhase allows only the forward step of the cycle, the wrap from Placing
// to Idle, and an abort to Idle from any phase. Anything else keeps current.
func nextPhase(current, target Phase) Phase {
	if target == PhaseIdle {
		return PhaseIdle
	}
	for i, p := range cycleOrder {
		if p == current && i+1 < len(cycleOrder) && cycleOrder[i+1] == target {
			return target
		}
	}
	return current
}
