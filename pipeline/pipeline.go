// Package pipeline computes which instructions occupy which stages of the
// classic 5-stage pipeline at a given cycle.
package pipeline

import "github.com/pipelab/pipelab/insts"

// A Stage is one of the five pipeline stages, in execution order.
type Stage int

// The five stages of the pipeline.
const (
	StageFetch Stage = iota
	StageDecode
	StageExecute
	StageMemory
	StageWriteBack
)

// NumStages is the depth of the pipeline.
const NumStages = 5

var stageNames = [NumStages]string{
	"Fetch",
	"Decode",
	"Execute",
	"Memory",
	"WriteBack",
}

func (s Stage) String() string {
	return stageNames[s]
}

// Stages lists all stages in order, for callers that need deterministic
// iteration over an Occupancy.
func Stages() [NumStages]Stage {
	return [NumStages]Stage{
		StageFetch,
		StageDecode,
		StageExecute,
		StageMemory,
		StageWriteBack,
	}
}

// An Occupancy maps each stage to the display texts of the instructions in
// that stage, preserving sequence order.
type Occupancy map[Stage][]string

// ComputeOccupancy returns the occupancy of the pipeline at the given cycle.
// The instruction at sequence position idx occupies stage cycle-idx whenever
// that value is in [0, NumStages).
func ComputeOccupancy(cycle int, instructions []insts.Instruction) Occupancy {
	occupancy := make(Occupancy, NumStages)
	for _, s := range Stages() {
		occupancy[s] = nil
	}

	for idx, inst := range instructions {
		stageIndex := cycle - idx
		if stageIndex < 0 || stageIndex >= NumStages {
			continue
		}

		stage := Stage(stageIndex)
		occupancy[stage] = append(occupancy[stage], inst.Text())
	}

	return occupancy
}

// StageOf returns the stage that the instruction at sequence position idx
// occupies at the given cycle. The second return value is false if the
// instruction is not in the pipeline at that cycle.
func StageOf(cycle, idx int) (Stage, bool) {
	stageIndex := cycle - idx
	if stageIndex < 0 || stageIndex >= NumStages {
		return 0, false
	}

	return Stage(stageIndex), true
}

// StructuralHazards returns the stages that hold more than one instruction.
func StructuralHazards(o Occupancy) []Stage {
	var conflicted []Stage

	for _, s := range Stages() {
		if len(o[s]) > 1 {
			conflicted = append(conflicted, s)
		}
	}

	return conflicted
}
