package datarecording

import (
	"github.com/pipelab/pipelab/engine"
)

const (
	executionLogTable    = "execution_log"
	writeBackResultTable = "writeback_results"
	hazardEventTable     = "hazard_events"
)

// An ExecutionLogRow is one recorded execution-log entry.
type ExecutionLogRow struct {
	Cycle   int
	Time    string
	Message string
}

// A WriteBackResultRow is one recorded write-back result.
type WriteBackResultRow struct {
	Cycle       int
	Instruction string
	Result      string
}

// A HazardEventRow is one recorded stall or flush event.
type HazardEventRow struct {
	Cycle int
	Kind  string
	Cause string
}

// A StepRecorder is an engine hook that persists execution-log entries,
// write-back results, and hazard events through a DataRecorder.
type StepRecorder struct {
	recorder DataRecorder
}

// NewStepRecorder creates a StepRecorder and creates the tables it writes.
func NewStepRecorder(recorder DataRecorder) *StepRecorder {
	recorder.CreateTable(executionLogTable, ExecutionLogRow{})
	recorder.CreateTable(writeBackResultTable, WriteBackResultRow{})
	recorder.CreateTable(hazardEventTable, HazardEventRow{})

	return &StepRecorder{recorder: recorder}
}

// Func records the hooked step outcome.
func (r *StepRecorder) Func(ctx engine.HookCtx) {
	cycle, _ := ctx.Detail.(int)

	switch ctx.Pos {
	case engine.HookPosStepAdvance:
		entry, ok := ctx.Item.(engine.ExecutionLogEntry)
		if !ok {
			return
		}

		r.recorder.InsertData(executionLogTable, ExecutionLogRow{
			Cycle:   entry.Cycle,
			Time:    entry.Time.Format("15:04:05.000"),
			Message: entry.Message,
		})
	case engine.HookPosWriteBack:
		result, ok := ctx.Item.(engine.WriteBackResult)
		if !ok {
			return
		}

		r.recorder.InsertData(writeBackResultTable, WriteBackResultRow{
			Cycle:       result.Cycle,
			Instruction: result.InstructionText,
			Result:      result.Result,
		})
	case engine.HookPosStall:
		r.recorder.InsertData(hazardEventTable, HazardEventRow{
			Cycle: cycle,
			Kind:  "stall",
			Cause: itemText(ctx.Item),
		})
	case engine.HookPosFlush:
		r.recorder.InsertData(hazardEventTable, HazardEventRow{
			Cycle: cycle,
			Kind:  "flush",
			Cause: itemText(ctx.Item),
		})
	}
}

func itemText(item interface{}) string {
	switch v := item.(type) {
	case interface{ Text() string }:
		return v.Text()
	case string:
		return v
	default:
		return ""
	}
}
