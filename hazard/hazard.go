// Package hazard classifies the hazards that arise between overlapping
// instructions in the pipeline.
package hazard

import "github.com/pipelab/pipelab/insts"

// DetectRAW reports whether current reads a register that prior will write
// before the write is visible. Both instructions must be non-nil.
//
// The write set of an R-format instruction is {Rd}. The write set of an
// I-format load is {Rt}; stores and branches write nothing. The read set of
// an R-format instruction is {Rs, Rt}, of an I-format instruction {Rt, Base},
// and of a B-format instruction empty. The I-format offset is an immediate
// and never participates.
func DetectRAW(prior, current insts.Instruction) bool {
	for _, w := range writeSet(prior) {
		for _, r := range readSet(current) {
			if w == r {
				return true
			}
		}
	}

	return false
}

func writeSet(inst insts.Instruction) []int {
	switch i := inst.(type) {
	case *insts.RType:
		return []int{i.Rd}
	case *insts.IType:
		if i.IsLoad() {
			return []int{i.Rt}
		}
	}

	return nil
}

func readSet(inst insts.Instruction) []int {
	switch i := inst.(type) {
	case *insts.RType:
		return []int{i.Rs, i.Rt}
	case *insts.IType:
		return []int{i.Rt, i.Base}
	}

	return nil
}

// IsControlHazard reports whether the instruction is a branch, regardless of
// mnemonic.
func IsControlHazard(inst insts.Instruction) bool {
	_, isBranch := inst.(*insts.BType)
	return isBranch
}

// IsBranchTaken resolves the branch outcome against the given register file.
// Only a literal "BEQ" can take, when its two source registers hold equal
// values; every other B-format instruction is never taken. Register indices
// are accepted as given; validating them is the caller's responsibility.
func IsBranchTaken(inst insts.Instruction, registers []int) bool {
	branch, isBranch := inst.(*insts.BType)
	if !isBranch {
		return false
	}

	if branch.Mnemonic() != "BEQ" {
		return false
	}

	return registers[branch.Rs] == registers[branch.Rt]
}
