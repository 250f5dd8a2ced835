package insts

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseProgram parses one instruction per line. Blank lines and lines starting
// with "#" or ";" are skipped.
func ParseProgram(src string) ([]Instruction, error) {
	var program []Instruction

	for n, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, ";") {
			continue
		}

		inst, err := ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}

		program = append(program, inst)
	}

	return program, nil
}

// ParseInstruction parses a single instruction in one of the three supported
// shapes:
//
//	ADD R1, R2, R3    R-format
//	LW R7, 0(R1)      I-format
//	BEQ R4, R6        B-format
func ParseInstruction(line string) (Instruction, error) {
	mnemonic, rest, found := strings.Cut(strings.TrimSpace(line), " ")
	if !found {
		return nil, fmt.Errorf("instruction %q has no operands", line)
	}

	mnemonic = strings.ToUpper(mnemonic)

	operands := strings.Split(rest, ",")
	for i := range operands {
		operands[i] = strings.TrimSpace(operands[i])
	}

	switch {
	case len(operands) == 2 && strings.Contains(operands[1], "("):
		return parseIType(mnemonic, operands)
	case len(operands) == 2:
		return parseBType(mnemonic, operands)
	case len(operands) == 3:
		return parseRType(mnemonic, operands)
	default:
		return nil, fmt.Errorf("instruction %q has %d operands, want 2 or 3",
			line, len(operands))
	}
}

func parseRType(mnemonic string, operands []string) (Instruction, error) {
	rd, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}

	rs, err := parseRegister(operands[1])
	if err != nil {
		return nil, err
	}

	rt, err := parseRegister(operands[2])
	if err != nil {
		return nil, err
	}

	return NewRType(mnemonic, rd, rs, rt), nil
}

func parseIType(mnemonic string, operands []string) (Instruction, error) {
	rt, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}

	offsetStr, baseStr, found := strings.Cut(operands[1], "(")
	if !found || !strings.HasSuffix(baseStr, ")") {
		return nil, fmt.Errorf("memory operand %q is not offset(Rbase)",
			operands[1])
	}

	offset, err := strconv.Atoi(offsetStr)
	if err != nil {
		return nil, fmt.Errorf("offset %q is not a number", offsetStr)
	}

	base, err := parseRegister(strings.TrimSuffix(baseStr, ")"))
	if err != nil {
		return nil, err
	}

	return NewIType(mnemonic, rt, base, offset), nil
}

func parseBType(mnemonic string, operands []string) (Instruction, error) {
	rs, err := parseRegister(operands[0])
	if err != nil {
		return nil, err
	}

	rt, err := parseRegister(operands[1])
	if err != nil {
		return nil, err
	}

	return NewBType(mnemonic, rs, rt), nil
}

func parseRegister(operand string) (int, error) {
	name := strings.ToUpper(operand)
	if !strings.HasPrefix(name, "R") {
		return 0, fmt.Errorf("operand %q is not a register", operand)
	}

	index, err := strconv.Atoi(strings.TrimPrefix(name, "R"))
	if err != nil {
		return 0, fmt.Errorf("operand %q is not a register", operand)
	}

	return index, nil
}
