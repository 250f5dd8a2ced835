// Package prediction provides the branch-prediction strategies that the step
// engine consults when it evaluates a control hazard.
package prediction

// A Strategy selects one of the supported branch-prediction schemes.
type Strategy int

// The closed set of supported strategies.
const (
	AlwaysTaken Strategy = iota
	AlwaysNotTaken
	OneBit
	TwoBitSaturating
)

var strategyNames = map[Strategy]string{
	AlwaysTaken:      "always-taken",
	AlwaysNotTaken:   "always-not-taken",
	OneBit:           "1-bit",
	TwoBitSaturating: "2-bit-saturating",
}

func (s Strategy) String() string {
	return strategyNames[s]
}

// ParseStrategy returns the strategy with the given label.
func ParseStrategy(label string) (Strategy, bool) {
	for s, name := range strategyNames {
		if name == label {
			return s, true
		}
	}

	return 0, false
}

// A Predictor predicts branch outcomes and learns from the resolved ones. A
// predictor keys its state by instruction ID, so the same static branch keeps
// its history across evaluations.
type Predictor interface {
	// Predict guesses whether the branch will be taken.
	Predict(id string) bool

	// Update records the resolved outcome of the branch. Static strategies
	// ignore it.
	Update(id string, taken bool)

	// Strategy returns which scheme this predictor implements.
	Strategy() Strategy

	// Clone deep-copies the predictor, including its per-branch state.
	Clone() Predictor
}

// NewPredictor creates a predictor implementing the given strategy with no
// recorded history.
func NewPredictor(s Strategy) Predictor {
	switch s {
	case AlwaysTaken:
		return staticPredictor{taken: true, strategy: AlwaysTaken}
	case AlwaysNotTaken:
		return staticPredictor{taken: false, strategy: AlwaysNotTaken}
	case OneBit:
		return &oneBitPredictor{lastOutcome: make(map[string]bool)}
	case TwoBitSaturating:
		return &twoBitPredictor{counters: make(map[string]int)}
	default:
		panic("unknown prediction strategy")
	}
}

type staticPredictor struct {
	taken    bool
	strategy Strategy
}

func (p staticPredictor) Predict(_ string) bool { return p.taken }

func (p staticPredictor) Update(_ string, _ bool) {}

func (p staticPredictor) Strategy() Strategy { return p.strategy }

func (p staticPredictor) Clone() Predictor { return p }

// A oneBitPredictor predicts whatever outcome it last observed for the
// branch, defaulting to not-taken.
type oneBitPredictor struct {
	lastOutcome map[string]bool
}

func (p *oneBitPredictor) Predict(id string) bool {
	return p.lastOutcome[id]
}

func (p *oneBitPredictor) Update(id string, taken bool) {
	p.lastOutcome[id] = taken
}

func (p *oneBitPredictor) Strategy() Strategy { return OneBit }

func (p *oneBitPredictor) Clone() Predictor {
	clone := &oneBitPredictor{
		lastOutcome: make(map[string]bool, len(p.lastOutcome)),
	}
	for id, outcome := range p.lastOutcome {
		clone.lastOutcome[id] = outcome
	}

	return clone
}

// The bounds and starting point of the 2-bit saturating counter. Counter
// values above counterInitial predict taken.
const (
	counterMin     = 0
	counterMax     = 3
	counterInitial = 1
)

// A twoBitPredictor keeps a saturating counter per branch, so a single
// deviation does not immediately flip a well-established prediction.
type twoBitPredictor struct {
	counters map[string]int
}

func (p *twoBitPredictor) counter(id string) int {
	counter, seen := p.counters[id]
	if !seen {
		return counterInitial
	}

	return counter
}

func (p *twoBitPredictor) Predict(id string) bool {
	return p.counter(id) > counterInitial
}

func (p *twoBitPredictor) Update(id string, taken bool) {
	counter := p.counter(id)

	if taken {
		counter++
		if counter > counterMax {
			counter = counterMax
		}
	} else {
		counter--
		if counter < counterMin {
			counter = counterMin
		}
	}

	p.counters[id] = counter
}

func (p *twoBitPredictor) Strategy() Strategy { return TwoBitSaturating }

func (p *twoBitPredictor) Clone() Predictor {
	clone := &twoBitPredictor{
		counters: make(map[string]int, len(p.counters)),
	}
	for id, counter := range p.counters {
		clone.counters[id] = counter
	}

	return clone
}
