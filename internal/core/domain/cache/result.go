package cache

// Outcome classifies a lookup against the store.
type Outcome int

const (
	OutcomeMiss Outcome = iota
	OutcomeHit
	OutcomeUnavailable
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "miss"
	}
}

// LookupResult is the outcome of a lookup. Entry is set only on a hit; Err is set for
// the unavailable and malformed outcomes.
type LookupResult struct {
	Outcome Outcome
	Entry   *Entry
	Err     error
}

// Hit reports whether the result can be replayed. Every other outcome is served as a miss.
func (r LookupResult) Hit() bool {
	return r.Outcome == OutcomeHit && r.Entry != nil
}
