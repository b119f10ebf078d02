package room

// Phase represents the current stage of the room lifecycle
type Phase string

const (
	PhaseWaiting    Phase = "waiting"     // Waiting for enough players to join
	PhaseReadyCheck Phase = "ready_check" // Waiting for every player to send ready
	PhaseVoting     Phase = "voting"      // Players voting on auto vs manual mode
	PhasePlaying    Phase = "playing"     // Timed round in progress
	PhaseFinished   Phase = "finished"    // Round over, ranking shown
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo checks if a transition from the current phase to the target
// phase is valid. The lifecycle only moves forward, except for the explicit
// reset from Finished back to Waiting.
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseWaiting:    {PhaseReadyCheck},
		PhaseReadyCheck: {PhaseVoting},
		PhaseVoting:     {PhasePlaying},
		PhasePlaying:    {PhaseFinished},
		PhaseFinished:   {PhaseWaiting},
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}
