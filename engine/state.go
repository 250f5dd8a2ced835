package engine

import (
	"time"

	"github.com/pipelab/pipelab/insts"
	"github.com/pipelab/pipelab/prediction"
)

// NumRegisters is the size of the register file.
const NumRegisters = 32

// MemoryWords is the number of words in the data memory.
const MemoryWords = 64

// A WriteBackResult describes what an instruction would do, recorded at the
// moment it reaches write-back. The register and memory copies let the
// record be inspected later; stepping never mutates the live arrays.
type WriteBackResult struct {
	Cycle           int
	InstructionText string
	Result          string
	Registers       []int
	Memory          []int
}

// An ExecutionLogEntry is one timestamped line of the execution log.
type ExecutionLogEntry struct {
	Time    time.Time
	Cycle   int
	Message string
}

// A Snapshot is a deep copy of the full engine state, owned by whoever took
// it. Restoring a snapshot is the exact inverse of taking it.
type Snapshot struct {
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
}

func (e *engineImpl) snapshot() Snapshot {
	return Snapshot{
		cycle:                e.cycle,
		stalls:               e.stalls,
		flushCyclesRemaining: e.flushCyclesRemaining,
		registers:            copyInts(e.registers),
		memory:               copyInts(e.memory),
		instructions:         copyInstructions(e.instructions),
		forwarding:           e.forwarding,
		predictionEnabled:    e.predictionEnabled,
		predictor:            e.predictor.Clone(),
		explanations:         copyStrings(e.explanations),
		executionLog:         copyExecutionLog(e.executionLog),
		writeBackResults:     copyWriteBackResults(e.writeBackResults),
	}
}

func (e *engineImpl) restore(s Snapshot) {
	e.cycle = s.cycle
	e.stalls = s.stalls
	e.flushCyclesRemaining = s.flushCyclesRemaining
	e.registers = copyInts(s.registers)
	e.memory = copyInts(s.memory)
	e.instructions = copyInstructions(s.instructions)
	e.forwarding = s.forwarding
	e.predictionEnabled = s.predictionEnabled
	e.predictor = s.predictor.Clone()
	e.explanations = copyStrings(s.explanations)
	e.executionLog = copyExecutionLog(s.executionLog)
	e.writeBackResults = copyWriteBackResults(s.writeBackResults)
}

func copyInts(values []int) []int {
	copied := make([]int, len(values))
	copy(copied, values)
	return copied
}

func copyStrings(values []string) []string {
	copied := make([]string, len(values))
	copy(copied, values)
	return copied
}

// Instructions are immutable once placed in the active sequence, so copying
// the slice header list is a deep copy in effect.
func copyInstructions(values []insts.Instruction) []insts.Instruction {
	copied := make([]insts.Instruction, len(values))
	copy(copied, values)
	return copied
}

func copyExecutionLog(values []ExecutionLogEntry) []ExecutionLogEntry {
	copied := make([]ExecutionLogEntry, len(values))
	copy(copied, values)
	return copied
}

func copyWriteBackResults(values []WriteBackResult) []WriteBackResult {
	copied := make([]WriteBackResult, len(values))
	for i, r := range values {
		r.Registers = copyInts(r.Registers)
		r.Memory = copyInts(r.Memory)
		copied[i] = r
	}

	return copied
}
