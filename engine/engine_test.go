package engine

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/pipelab/pipelab/insts"
	"github.com/pipelab/pipelab/prediction"
)

// hazardFreeProgram has disjoint registers, so no pair of instructions can
// conflict.
func hazardFreeProgram() []insts.Instruction {
	return []insts.Instruction{
		insts.NewRType("ADD", 1, 2, 3),
		insts.NewRType("ADD", 4, 5, 6),
		insts.NewRType("ADD", 7, 8, 9),
	}
}

// classroomProgram is the canonical demo sequence: a RAW pair, a branch on
// the RAW result, and a load-store pair.
func classroomProgram() []insts.Instruction {
	return []insts.Instruction{
		insts.NewRType("ADD", 1, 2, 3),
		insts.NewRType("SUB", 4, 1, 5),
		insts.NewBType("BEQ", 4, 6),
		insts.NewIType("LW", 7, 1, 0),
		insts.NewIType("SW", 7, 1, 4),
	}
}

var _ = Describe("Engine", func() {
	var e *engineImpl

	buildEngine := func(b Builder, program []insts.Instruction) *engineImpl {
		engine := b.Build("Engine").(*engineImpl)
		engine.ApplyInstructions(program)
		return engine
	}

	Context("with a hazard-free program", func() {
		BeforeEach(func() {
			e = buildEngine(MakeBuilder(), hazardFreeProgram())
		})

		It("should drain in N+4 steps", func() {
			for i := 0; i < 3+4; i++ {
				e.Step()
			}

			Expect(e.Cycle()).To(Equal(7))
			Expect(e.Stalls()).To(Equal(0))
			Expect(e.WriteBackResults()).To(HaveLen(3))

			for _, texts := range e.Occupancy() {
				Expect(texts).To(BeEmpty())
			}
		})

		It("should explain every cycle and advance by exactly one", func() {
			for i := 0; i < 5; i++ {
				before := e.Cycle()

				e.Step()

				Expect(e.Cycle()).To(Equal(before + 1))
				Expect(e.Explanations()).To(HaveLen(i + 1))
				Expect(e.Explanations()[i]).
					To(ContainSubstring("executed without stall"))
				Expect(e.ExecutionLog()).To(HaveLen(i + 1))
			}
		})

		It("should report CPI as (cycle+stalls)/instructions", func() {
			for i := 0; i < 7; i++ {
				e.Step()
			}

			Expect(e.CPI()).To(BeNumerically("~", 7.0/3.0, 1e-9))
		})
	})

	Context("with forwarding disabled", func() {
		BeforeEach(func() {
			e = buildEngine(
				MakeBuilder().WithForwarding(false),
				classroomProgram())
		})

		It("should stall on the RAW pair without advancing", func() {
			e.Step()
			Expect(e.Cycle()).To(Equal(1))

			e.Step()

			Expect(e.Cycle()).To(Equal(1))
			Expect(e.Stalls()).To(Equal(1))
			Expect(e.Explanations()[1]).
				To(ContainSubstring("Data hazard (RAW)"))
		})

		It("should keep stalls monotonically non-decreasing", func() {
			stalls := 0
			for i := 0; i < 10; i++ {
				e.Step()

				Expect(e.Stalls()).To(BeNumerically(">=", stalls))
				stalls = e.Stalls()
			}
		})
	})

	Context("with always-not-taken prediction and a taken branch", func() {
		BeforeEach(func() {
			// All registers are zero, so BEQ R4, R6 resolves taken.
			e = buildEngine(
				MakeBuilder().WithStrategy(prediction.AlwaysNotTaken),
				classroomProgram())
		})

		It("should charge 2 stalls and flush for 2 cycles", func() {
			e.Step()
			e.Step()
			Expect(e.Cycle()).To(Equal(2))
			Expect(e.Stalls()).To(Equal(0))

			e.Step()

			Expect(e.Cycle()).To(Equal(2))
			Expect(e.Stalls()).To(Equal(2))
			Expect(e.FlushCyclesRemaining()).To(Equal(2))
			Expect(e.Explanations()[2]).
				To(ContainSubstring(`Misprediction on branch "BEQ R4, R6"`))

			e.Step()
			Expect(e.Cycle()).To(Equal(3))
			Expect(e.Explanations()[3]).
				To(ContainSubstring("Flushing pipeline"))
			Expect(e.Explanations()[3]).
				To(ContainSubstring(`branch "BEQ R4, R6"`))

			e.Step()
			Expect(e.Cycle()).To(Equal(4))
			Expect(e.Explanations()[4]).
				To(ContainSubstring("Flushing pipeline"))
			Expect(e.FlushCyclesRemaining()).To(Equal(0))

			e.Step()
			Expect(e.Cycle()).To(Equal(5))
			Expect(e.Explanations()[5]).
				To(ContainSubstring("executed without stall"))
		})

		It("should list the in-flight instructions in the flush explanation",
			func() {
				e.Step()
				e.Step()
				e.Step()
				e.Step()

				Expect(e.Explanations()[3]).
					To(ContainSubstring("BEQ R4, R6"))
				Expect(e.Explanations()[3]).
					To(ContainSubstring("SUB R4, R1, R5"))
				Expect(e.Explanations()[3]).
					To(ContainSubstring("ADD R1, R2, R3"))
			})

		It("should not mispredict a not-taken branch", func() {
			registers := make([]int, NumRegisters)
			registers[4] = 1
			registers[6] = 2
			e.LoadRegisters(registers)

			e.Step()
			e.Step()
			e.Step()

			Expect(e.Cycle()).To(Equal(3))
			Expect(e.Stalls()).To(Equal(0))
			Expect(e.Explanations()[2]).
				To(ContainSubstring("Prediction correct"))
		})
	})

	Context("with prediction disabled", func() {
		BeforeEach(func() {
			e = buildEngine(
				MakeBuilder().WithPrediction(false),
				classroomProgram())
		})

		It("should always charge the 2-stall 2-flush penalty", func() {
			e.Step()
			e.Step()
			e.Step()

			Expect(e.Cycle()).To(Equal(2))
			Expect(e.Stalls()).To(Equal(2))
			Expect(e.FlushCyclesRemaining()).To(Equal(2))
			Expect(e.Explanations()[2]).
				To(ContainSubstring("Control hazard resolved by stalling"))
		})

		It("should charge the same penalty for a not-taken branch", func() {
			registers := make([]int, NumRegisters)
			registers[6] = 9
			e.LoadRegisters(registers)

			e.Step()
			e.Step()
			e.Step()

			Expect(e.Stalls()).To(Equal(2))
			Expect(e.FlushCyclesRemaining()).To(Equal(2))
		})
	})

	Context("write-back result collection", func() {
		BeforeEach(func() {
			e = buildEngine(MakeBuilder(), classroomProgram()[3:])
		})

		It("should synthesize load and store effects", func() {
			// LW retires at cycle 4, SW at cycle 5.
			for i := 0; i < 6; i++ {
				e.Step()
			}

			results := e.WriteBackResults()
			Expect(results).To(HaveLen(2))

			Expect(results[0].Cycle).To(Equal(4))
			Expect(results[0].Result).To(Equal("R7 loaded from M[R[1] + 0]"))
			Expect(results[1].Cycle).To(Equal(5))
			Expect(results[1].Result).To(Equal("M[R[1] + 4] = R7"))

			Expect(results[0].Registers).To(HaveLen(NumRegisters))
			Expect(results[0].Memory).To(HaveLen(MemoryWords))
		})

		It("should never mutate registers or memory", func() {
			for i := 0; i < 9; i++ {
				e.Step()
			}

			Expect(e.Registers()).To(Equal(make([]int, NumRegisters)))
			Expect(e.Memory()).To(Equal(make([]int, MemoryWords)))
		})
	})

	Context("history", func() {
		BeforeEach(func() {
			e = buildEngine(MakeBuilder(), classroomProgram())
		})

		It("should make restore the exact inverse of snapshot", func() {
			e.Step()
			e.Step()

			s := e.Snapshot()
			before := e.Export()

			e.Restore(s)

			Expect(e.Export()).To(Equal(before))
			Expect(e.Cycle()).To(Equal(2))
		})

		It("should step back to the state before the last step", func() {
			e.Step()
			before := e.Export()

			e.Step()
			restored := e.StepBack()

			Expect(restored).To(BeTrue())
			Expect(e.Export()).To(Equal(before))
		})

		It("should refuse to step back past the beginning", func() {
			Expect(e.StepBack()).To(BeFalse())
		})

		It("should undo a misprediction completely", func() {
			e.Step()
			e.Step()
			before := e.Export()

			e.Step()
			Expect(e.Stalls()).To(Equal(2))

			Expect(e.StepBack()).To(BeTrue())
			Expect(e.Stalls()).To(Equal(0))
			Expect(e.FlushCyclesRemaining()).To(Equal(0))
			Expect(e.Export()).To(Equal(before))
		})
	})

	Context("applying a new sequence", func() {
		BeforeEach(func() {
			e = buildEngine(MakeBuilder(), classroomProgram())
		})

		It("should reset all run state", func() {
			registers := make([]int, NumRegisters)
			registers[1] = 42
			e.LoadRegisters(registers)

			for i := 0; i < 4; i++ {
				e.Step()
			}

			replacement := hazardFreeProgram()
			e.ApplyInstructions(replacement)

			Expect(e.Cycle()).To(Equal(0))
			Expect(e.Stalls()).To(Equal(0))
			Expect(e.FlushCyclesRemaining()).To(Equal(0))
			Expect(e.Explanations()).To(BeEmpty())
			Expect(e.ExecutionLog()).To(BeEmpty())
			Expect(e.WriteBackResults()).To(BeEmpty())
			Expect(e.Registers()).To(Equal(make([]int, NumRegisters)))
			Expect(e.StepBack()).To(BeFalse())
			Expect(e.Instructions()).To(HaveLen(len(replacement)))
		})
	})

	Context("export", func() {
		BeforeEach(func() {
			e = buildEngine(MakeBuilder(), classroomProgram())
		})

		It("should describe the current state without mutating it", func() {
			e.Step()
			e.Step()

			before := e.Cycle()
			export := e.Export()

			Expect(e.Cycle()).To(Equal(before))
			Expect(export.Registers).To(HaveLen(NumRegisters))
			Expect(export.Memory).To(HaveLen(MemoryWords))
			Expect(export.Instructions).To(HaveLen(5))
			Expect(export.Instructions[0].Format).To(Equal("R"))
			Expect(export.Instructions[2].Format).To(Equal("B"))
			Expect(export.Instructions[3].Format).To(Equal("I"))
			Expect(export.PipelineState["Execute"]).
				To(Equal([]string{"ADD R1, R2, R3"}))
			Expect(export.ExecLog).To(HaveLen(2))
			Expect(export.CPI).To(BeNumerically("~", 2.0/5.0, 1e-9))
		})
	})
})

var _ = Describe("Engine with a mocked predictor", func() {
	var (
		mockCtrl  *gomock.Controller
		predictor *MockPredictor
		e         *engineImpl
		program   []insts.Instruction
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		predictor = NewMockPredictor(mockCtrl)

		program = classroomProgram()
		e = MakeBuilder().Build("Engine").(*engineImpl)
		e.ApplyInstructions(program)
		e.predictor = predictor

		predictor.EXPECT().Clone().Return(predictor).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fall through to a normal advance on a correct prediction",
		func() {
			branch := program[2]
			predictor.EXPECT().Predict(branch.ID()).Return(true)
			predictor.EXPECT().Update(branch.ID(), true)

			e.Step()
			e.Step()
			e.Step()

			Expect(e.Cycle()).To(Equal(3))
			Expect(e.Stalls()).To(Equal(0))
			Expect(e.Explanations()[2]).
				To(ContainSubstring("Prediction correct"))
		})

	It("should record the actual outcome on a misprediction", func() {
		branch := program[2]
		predictor.EXPECT().Predict(branch.ID()).Return(false)
		predictor.EXPECT().Update(branch.ID(), true)

		e.Step()
		e.Step()
		e.Step()

		Expect(e.Cycle()).To(Equal(2))
		Expect(e.Stalls()).To(Equal(2))
	})
})
