package session

// State is the lifecycle position of the most recent request.
type State int

const (
	Idle State = iota
	AudioResolved
	EngineReady
	Transcribing
	Completed
	Failed
)

var stateNames = [...]string{
	Idle:          "idle",
	AudioResolved: "audio-resolved",
	EngineReady:   "engine-ready",
	Transcribing:  "transcribing",
	Completed:     "completed",
	Failed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Done reports whether s is terminal.
func (s State) Done() bool { return s == Completed || s == Failed }
