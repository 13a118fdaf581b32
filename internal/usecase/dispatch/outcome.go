package dispatch

// Outcome is the result of one dispatch attempt. Only OutcomePlayed changes
// any state.
type Outcome int

const (
	OutcomePlayed Outcome = iota
	OutcomeNotReady
	OutcomeBusy
	OutcomeGlobalCooldown
	OutcomeBlocked
	OutcomeUnauthorized
	OutcomeNoMatch
	OutcomeOnCooldown
)

var outcomeNames = map[Outcome]string{
	OutcomePlayed:         "played",
	OutcomeNotReady:       "not_ready",
	OutcomeBusy:           "busy",
	OutcomeGlobalCooldown: "global_cooldown",
	OutcomeBlocked:        "blocked",
	OutcomeUnauthorized:   "unauthorized",
	OutcomeNoMatch:        "no_match",
	OutcomeOnCooldown:     "on_cooldown",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}
