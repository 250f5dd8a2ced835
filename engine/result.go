package engine

import (
	"fmt"

	"github.com/pipelab/pipelab/hazard"
	"github.com/pipelab/pipelab/insts"
)

// collectResult synthesizes the human-readable effect of an instruction
// reaching write-back this cycle. The register and memory arrays are copied
// into the record so it can be inspected later; the live arrays themselves
// are never altered by execution.
func (e *engineImpl) collectResult(inst insts.Instruction) WriteBackResult {
	return WriteBackResult{
		Cycle:           e.cycle,
		InstructionText: inst.Text(),
		Result:          e.describeEffect(inst),
		Registers:       copyInts(e.registers),
		Memory:          copyInts(e.memory),
	}
}

func (e *engineImpl) describeEffect(inst insts.Instruction) string {
	switch i := inst.(type) {
	case *insts.RType:
		// The operator is deliberately generic: the simulator models
		// occupancy, not arithmetic.
		return fmt.Sprintf("R%d = R[%d] op R[%d]", i.Rd, i.Rs, i.Rt)
	case *insts.IType:
		if i.IsLoad() {
			return fmt.Sprintf("R%d loaded from M[R[%d] + %d]",
				i.Rt, i.Base, i.Offset)
		}

		if i.IsStore() {
			return fmt.Sprintf("M[R[%d] + %d] = R%d",
				i.Base, i.Offset, i.Rt)
		}

		return fmt.Sprintf("%s completed", i.Text())
	case *insts.BType:
		return fmt.Sprintf("Branch evaluated: %t",
			hazard.IsBranchTaken(i, e.registers))
	default:
		return fmt.Sprintf("%s completed", inst.Text())
	}
}
