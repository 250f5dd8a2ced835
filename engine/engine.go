// Package engine implements the pipeline stepping engine. The engine tracks
// where instructions are in the 5-stage pipeline and explains the hazards
// that arise between them; it never executes instruction semantics.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/pipelab/pipelab/hazard"
	"github.com/pipelab/pipelab/insts"
	"github.com/pipelab/pipelab/pipeline"
	"github.com/pipelab/pipelab/prediction"
)

// An Engine advances the pipeline one cycle per Step call and keeps the
// cycle, stall, and flush bookkeeping. All methods must be called from a
// single conceptual caller at a time.
type Engine interface {
	Named
	Hookable

	// Step performs one transition of the state machine. Each call appends
	// at most one explanation and one execution-log entry, and advances the
	// cycle by exactly 0 or 1.
	Step()

	// StepBack restores the engine to the state before the most recent Step.
	// It returns false if there is no step to undo.
	StepBack() bool

	// ApplyInstructions replaces the active instruction sequence and resets
	// all run state, including registers, memory, predictor state, and
	// history.
	ApplyInstructions(sequence []insts.Instruction)

	// Snapshot deep-copies the full engine state.
	Snapshot() Snapshot

	// Restore replaces the live state with the snapshot's contents.
	Restore(s Snapshot)

	// SetStrategy swaps the branch-prediction strategy. The new predictor
	// starts with no recorded history.
	SetStrategy(s prediction.Strategy)

	// SetForwarding toggles the forwarding model. With forwarding on, RAW
	// hazards cost nothing.
	SetForwarding(enabled bool)

	// SetPredictionEnabled toggles branch prediction. With prediction off,
	// every control hazard is resolved by an unconditional 2-cycle
	// stall-and-flush.
	SetPredictionEnabled(enabled bool)

	// LoadRegisters overwrites the register file. Stepping never mutates
	// registers; this is the external reload path. Values beyond the
	// register-file size are ignored.
	LoadRegisters(values []int)

	// LoadMemory overwrites the data memory, with the same contract as
	// LoadRegisters.
	LoadMemory(values []int)

	Cycle() int
	Stalls() int
	FlushCyclesRemaining() int
	CPI() float64
	Instructions() []insts.Instruction
	Registers() []int
	Memory() []int
	Explanations() []string
	ExecutionLog() []ExecutionLogEntry
	WriteBackResults() []WriteBackResult
	Occupancy() pipeline.Occupancy
	StrategyLabel() string

	// Export produces the immutable state document consumed by external
	// display collaborators.
	Export() ExportedState
}

type engineImpl struct {
	HookableBase

	name string

	cycle                int
	stalls               int
	flushCyclesRemaining int

	registers    []int
	memory       []int
	instructions []insts.Instruction

	forwarding        bool
	predictionEnabled bool
	predictor         prediction.Predictor

	explanations     []string
	executionLog     []ExecutionLogEntry
	writeBackResults []WriteBackResult

	history historyStack

	// explained marks whether the current Step call has already produced an
	// explanation. Reset at the top of Step.
	explained bool
}

func (e *engineImpl) Name() string {
	return e.name
}

// Step performs one transition of the state machine.
func (e *engineImpl) Step() {
	e.history.Push(e.snapshot())
	e.explained = false

	if e.flushCyclesRemaining > 0 {
		e.stepDraining()
		return
	}

	e.stepEvaluating()
}

// stepDraining consumes one flush cycle. No hazard evaluation happens while
// the pipeline drains.
func (e *engineImpl) stepDraining() {
	cause := inferFlushCause(e.explanations)
	flushed := e.flushedInstructions()

	e.cycle++
	e.explain("Flushing pipeline (cycle %d): discarding %s after %s",
		e.cycle, flushed, cause)
	e.flushCyclesRemaining--

	e.invokeStepHook(HookPosFlush, cause)
}

// flushedInstructions lists every instruction occupying a stage other than
// write-back at the cycle the flush step occurs.
func (e *engineImpl) flushedInstructions() string {
	occupancy := pipeline.ComputeOccupancy(e.cycle, e.instructions)

	var texts []string
	for _, s := range pipeline.Stages() {
		if s == pipeline.StageWriteBack {
			continue
		}

		texts = append(texts, occupancy[s]...)
	}

	if len(texts) == 0 {
		return "no in-flight instructions"
	}

	return fmt.Sprintf("in-flight instructions [%s]",
		strings.Join(texts, "; "))
}

func (e *engineImpl) stepEvaluating() {
	idx := e.cycle
	if idx > 0 && idx < len(e.instructions) {
		prior := e.instructions[idx-1]
		current := e.instructions[idx]

		if !e.forwarding && hazard.DetectRAW(prior, current) {
			e.stallOnRAW(prior, current)
			return
		}

		if hazard.IsControlHazard(current) {
			proceed := e.evaluateControlHazard(current)
			if !proceed {
				return
			}
		}
	}

	e.advance()
}

func (e *engineImpl) stallOnRAW(prior, current insts.Instruction) {
	e.explain(
		"Data hazard (RAW): %q reads a register that %q writes; "+
			"stalling one cycle",
		current.Text(), prior.Text())
	e.stalls++

	e.invokeStepHook(HookPosStall, current)
}

// evaluateControlHazard resolves the branch, consults and updates the
// predictor, and decides between flushing and falling through to a normal
// advance. It returns true if the step should continue with a normal advance.
func (e *engineImpl) evaluateControlHazard(current insts.Instruction) bool {
	taken := hazard.IsBranchTaken(current, e.registers)
	predicted := e.predictor.Predict(current.ID())
	e.predictor.Update(current.ID(), taken)

	if !e.predictionEnabled {
		e.explain(
			"Control hazard resolved by stalling on branch %q: "+
				"2 stall cycles and a 2-cycle flush",
			current.Text())
		e.stalls += 2
		e.flushCyclesRemaining = flushPenaltyCycles

		e.invokeStepHook(HookPosStall, current)

		return false
	}

	if predicted != taken {
		e.explain(
			"Misprediction on branch %q: predicted taken=%t, actual taken=%t; "+
				"2 stall cycles and a 2-cycle flush",
			current.Text(), predicted, taken)
		e.stalls += 2
		e.flushCyclesRemaining = flushPenaltyCycles

		e.invokeStepHook(HookPosStall, current)

		return false
	}

	e.explain("Prediction correct for branch %q (taken=%t)",
		current.Text(), taken)

	return true
}

// flushPenaltyCycles is the drain length after a misprediction or an
// unpredicted control hazard.
const flushPenaltyCycles = 2

// advance retires write-back occupants, logs the step, and moves the cycle
// forward.
func (e *engineImpl) advance() {
	for idx, inst := range e.instructions {
		stage, inPipeline := pipeline.StageOf(e.cycle, idx)
		if !inPipeline || stage != pipeline.StageWriteBack {
			continue
		}

		result := e.collectResult(inst)
		e.writeBackResults = append(e.writeBackResults, result)

		e.invokeStepHook(HookPosWriteBack, result)
	}

	entry := ExecutionLogEntry{
		Time:    time.Now(),
		Cycle:   e.cycle,
		Message: fmt.Sprintf("cycle %d advanced", e.cycle),
	}
	e.executionLog = append(e.executionLog, entry)

	if !e.explained {
		e.explain("Cycle %d executed without stall", e.cycle)
	}

	e.cycle++

	e.invokeStepHook(HookPosStepAdvance, entry)
}

// explain appends one line to the explanation log. Step produces at most one
// explanation per call.
func (e *engineImpl) explain(format string, args ...interface{}) {
	e.explanations = append(e.explanations, fmt.Sprintf(format, args...))
	e.explained = true
}

func (e *engineImpl) invokeStepHook(pos *HookPos, item interface{}) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    pos,
		Item:   item,
		Detail: e.cycle,
	})
}

// StepBack restores the engine to the state before the most recent Step.
func (e *engineImpl) StepBack() bool {
	s, ok := e.history.Pop()
	if !ok {
		return false
	}

	e.restore(s)

	return true
}

// ApplyInstructions replaces the active sequence and resets all run state.
func (e *engineImpl) ApplyInstructions(sequence []insts.Instruction) {
	e.cycle = 0
	e.stalls = 0
	e.flushCyclesRemaining = 0
	e.registers = make([]int, NumRegisters)
	e.memory = make([]int, MemoryWords)
	e.instructions = copyInstructions(sequence)
	e.predictor = prediction.NewPredictor(e.predictor.Strategy())
	e.explanations = nil
	e.executionLog = nil
	e.writeBackResults = nil
	e.history.Clear()
}

// Snapshot deep-copies the full engine state.
func (e *engineImpl) Snapshot() Snapshot {
	return e.snapshot()
}

// Restore replaces the live state with the snapshot's contents.
func (e *engineImpl) Restore(s Snapshot) {
	e.restore(s)
}

func (e *engineImpl) SetStrategy(s prediction.Strategy) {
	e.predictor = prediction.NewPredictor(s)
}

func (e *engineImpl) SetForwarding(enabled bool) {
	e.forwarding = enabled
}

func (e *engineImpl) SetPredictionEnabled(enabled bool) {
	e.predictionEnabled = enabled
}

func (e *engineImpl) LoadRegisters(values []int) {
	e.registers = make([]int, NumRegisters)
	copy(e.registers, values)
}

func (e *engineImpl) LoadMemory(values []int) {
	e.memory = make([]int, MemoryWords)
	copy(e.memory, values)
}

func (e *engineImpl) Cycle() int {
	return e.cycle
}

func (e *engineImpl) Stalls() int {
	return e.stalls
}

func (e *engineImpl) FlushCyclesRemaining() int {
	return e.flushCyclesRemaining
}

// CPI is (cycle + stalls) / instruction count, or 0 for an empty sequence.
func (e *engineImpl) CPI() float64 {
	if len(e.instructions) == 0 {
		return 0
	}

	return float64(e.cycle+e.stalls) / float64(len(e.instructions))
}

func (e *engineImpl) Instructions() []insts.Instruction {
	return copyInstructions(e.instructions)
}

func (e *engineImpl) Registers() []int {
	return copyInts(e.registers)
}

func (e *engineImpl) Memory() []int {
	return copyInts(e.memory)
}

func (e *engineImpl) Explanations() []string {
	return copyStrings(e.explanations)
}

func (e *engineImpl) ExecutionLog() []ExecutionLogEntry {
	return copyExecutionLog(e.executionLog)
}

func (e *engineImpl) WriteBackResults() []WriteBackResult {
	return copyWriteBackResults(e.writeBackResults)
}

func (e *engineImpl) Occupancy() pipeline.Occupancy {
	return pipeline.ComputeOccupancy(e.cycle, e.instructions)
}

func (e *engineImpl) StrategyLabel() string {
	return e.predictor.Strategy().String()
}
