// Package insts defines the instruction formats that can flow through the
// pipeline.
package insts

import (
	"fmt"
	"strings"

	"github.com/rs/xid"
)

// An Instruction is one element of the instruction sequence that the pipeline
// executes. Instructions are immutable once created.
type Instruction interface {
	// ID returns the unique identifier of the instruction.
	ID() string

	// Text returns the display form of the instruction.
	Text() string

	// Mnemonic returns the operation name, e.g., "ADD", "LW", "BEQ".
	Mnemonic() string
}

// An RType instruction reads two registers and writes one register.
type RType struct {
	id       string
	text     string
	mnemonic string

	Rd, Rs, Rt int
}

// NewRType creates an R-format instruction.
func NewRType(mnemonic string, rd, rs, rt int) *RType {
	return &RType{
		id:       xid.New().String(),
		text:     fmt.Sprintf("%s R%d, R%d, R%d", mnemonic, rd, rs, rt),
		mnemonic: mnemonic,
		Rd:       rd,
		Rs:       rs,
		Rt:       rt,
	}
}

func (i *RType) ID() string { return i.id }

func (i *RType) Text() string { return i.text }

func (i *RType) Mnemonic() string { return i.mnemonic }

// An IType instruction accesses memory at R[Base]+Offset. The mnemonic prefix
// decides whether it loads ("LW") or stores ("SW").
type IType struct {
	id       string
	text     string
	mnemonic string

	Rt, Base, Offset int
}

// NewIType creates an I-format instruction.
func NewIType(mnemonic string, rt, base, offset int) *IType {
	return &IType{
		id:       xid.New().String(),
		text:     fmt.Sprintf("%s R%d, %d(R%d)", mnemonic, rt, offset, base),
		mnemonic: mnemonic,
		Rt:       rt,
		Base:     base,
		Offset:   offset,
	}
}

func (i *IType) ID() string { return i.id }

func (i *IType) Text() string { return i.text }

func (i *IType) Mnemonic() string { return i.mnemonic }

// IsLoad tells if the instruction reads from memory.
func (i *IType) IsLoad() bool {
	return strings.HasPrefix(i.mnemonic, "LW")
}

// IsStore tells if the instruction writes to memory.
func (i *IType) IsStore() bool {
	return strings.HasPrefix(i.mnemonic, "SW")
}

// A BType instruction is a branch comparing two registers. Only the "BEQ"
// mnemonic can resolve as taken; every other B-format instruction is a
// control-hazard source that never takes.
type BType struct {
	id       string
	text     string
	mnemonic string

	Rs, Rt int
}

// NewBType creates a B-format instruction.
func NewBType(mnemonic string, rs, rt int) *BType {
	return &BType{
		id:       xid.New().String(),
		text:     fmt.Sprintf("%s R%d, R%d", mnemonic, rs, rt),
		mnemonic: mnemonic,
		Rs:       rs,
		Rt:       rt,
	}
}

func (i *BType) ID() string { return i.id }

func (i *BType) Text() string { return i.text }

func (i *BType) Mnemonic() string { return i.mnemonic }
