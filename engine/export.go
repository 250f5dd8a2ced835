package engine

import (
	"fmt"

	"github.com/pipelab/pipelab/insts"
	"github.com/pipelab/pipelab/pipeline"
)

// An ExportedState is the immutable snapshot document consumed by external
// display collaborators. Taking an export has no effect on live state.
type ExportedState struct {
	Registers     []int                 `json:"registers"`
	Memory        []int                 `json:"memory"`
	Instructions  []InstructionRecord   `json:"instructions"`
	PipelineState map[string][]string   `json:"pipelineState"`
	Stalls        int                   `json:"stalls"`
	CPI           float64               `json:"cpi"`
	ExecLog       []string              `json:"execLog"`
	WBResults     []WriteBackResultView `json:"wbResults"`
}

// An InstructionRecord is the exported form of one instruction.
type InstructionRecord struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Format string `json:"format"`
}

// A WriteBackResultView is the exported form of one write-back result.
type WriteBackResultView struct {
	Cycle           int    `json:"cycle"`
	InstructionText string `json:"instructionText"`
	Result          string `json:"result"`
	Registers       []int  `json:"registers"`
	Memory          []int  `json:"memory"`
}

// Export produces the exported state document for the current cycle.
func (e *engineImpl) Export() ExportedState {
	occupancy := pipeline.ComputeOccupancy(e.cycle, e.instructions)

	pipelineState := make(map[string][]string, pipeline.NumStages)
	for _, s := range pipeline.Stages() {
		pipelineState[s.String()] = copyStrings(occupancy[s])
	}

	execLog := make([]string, len(e.executionLog))
	for i, entry := range e.executionLog {
		execLog[i] = fmt.Sprintf("[%s] %s",
			entry.Time.Format("15:04:05.000"), entry.Message)
	}

	wbResults := make([]WriteBackResultView, len(e.writeBackResults))
	for i, r := range e.writeBackResults {
		wbResults[i] = WriteBackResultView{
			Cycle:           r.Cycle,
			InstructionText: r.InstructionText,
			Result:          r.Result,
			Registers:       copyInts(r.Registers),
			Memory:          copyInts(r.Memory),
		}
	}

	return ExportedState{
		Registers:     copyInts(e.registers),
		Memory:        copyInts(e.memory),
		Instructions:  exportInstructions(e.instructions),
		PipelineState: pipelineState,
		Stalls:        e.stalls,
		CPI:           e.CPI(),
		ExecLog:       execLog,
		WBResults:     wbResults,
	}
}

func exportInstructions(
	instructions []insts.Instruction,
) []InstructionRecord {
	records := make([]InstructionRecord, len(instructions))
	for i, inst := range instructions {
		records[i] = InstructionRecord{
			ID:     inst.ID(),
			Text:   inst.Text(),
			Format: formatOf(inst),
		}
	}

	return records
}

func formatOf(inst insts.Instruction) string {
	switch inst.(type) {
	case *insts.RType:
		return "R"
	case *insts.IType:
		return "I"
	case *insts.BType:
		return "B"
	default:
		return "?"
	}
}
