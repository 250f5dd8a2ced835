package engine

import (
	"strings"

	"github.com/pipelab/pipelab/prediction"
)

// A Builder can build stepping engines.
type Builder struct {
	forwarding        bool
	predictionEnabled bool
	strategy          prediction.Strategy
}

// MakeBuilder creates a default builder. By default forwarding and
// prediction are both enabled and the strategy is always-not-taken.
func MakeBuilder() Builder {
	return Builder{
		forwarding:        true,
		predictionEnabled: true,
		strategy:          prediction.AlwaysNotTaken,
	}
}

// WithForwarding sets whether RAW hazards are eliminated by forwarding.
func (b Builder) WithForwarding(enabled bool) Builder {
	b.forwarding = enabled
	return b
}

// WithPrediction sets whether branch prediction is enabled.
func (b Builder) WithPrediction(enabled bool) Builder {
	b.predictionEnabled = enabled
	return b
}

// WithStrategy sets the branch-prediction strategy.
func (b Builder) WithStrategy(s prediction.Strategy) Builder {
	b.strategy = s
	return b
}

// Build builds an engine with an empty instruction sequence.
func (b Builder) Build(name string) Engine {
	NameMustBeValid(name)

	e := &engineImpl{
		name:              name,
		registers:         make([]int, NumRegisters),
		memory:            make([]int, MemoryWords),
		forwarding:        b.forwarding,
		predictionEnabled: b.predictionEnabled,
		predictor:         prediction.NewPredictor(b.strategy),
	}

	return e
}

// Named is an object that has a name.
type Named interface {
	Name() string
}

// NameMustBeValid panics if the name is empty or contains white space.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	if strings.ContainsAny(name, " \t\n") {
		panic("name must not contain white space")
	}
}
