package prediction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Static Predictors", func() {
	It("should always predict taken", func() {
		p := NewPredictor(AlwaysTaken)

		Expect(p.Predict("b1")).To(BeTrue())

		p.Update("b1", false)
		Expect(p.Predict("b1")).To(BeTrue())
	})

	It("should always predict not taken", func() {
		p := NewPredictor(AlwaysNotTaken)

		Expect(p.Predict("b1")).To(BeFalse())

		p.Update("b1", true)
		Expect(p.Predict("b1")).To(BeFalse())
	})
})

var _ = Describe("One-Bit Predictor", func() {
	var p Predictor

	BeforeEach(func() {
		p = NewPredictor(OneBit)
	})

	It("should default to not taken", func() {
		Expect(p.Predict("b1")).To(BeFalse())
	})

	It("should predict the last observed outcome", func() {
		p.Update("b1", true)
		Expect(p.Predict("b1")).To(BeTrue())

		p.Update("b1", false)
		Expect(p.Predict("b1")).To(BeFalse())
	})

	It("should keep state per branch", func() {
		p.Update("b1", true)

		Expect(p.Predict("b1")).To(BeTrue())
		Expect(p.Predict("b2")).To(BeFalse())
	})
})

var _ = Describe("Two-Bit Predictor", func() {
	var p *twoBitPredictor

	BeforeEach(func() {
		p = NewPredictor(TwoBitSaturating).(*twoBitPredictor)
	})

	It("should start every branch at the initial counter", func() {
		Expect(p.counter("b1")).To(Equal(counterInitial))
		Expect(p.Predict("b1")).To(BeFalse())
	})

	It("should predict taken when the counter exceeds the initial value", func() {
		p.Update("b1", true)

		Expect(p.counter("b1")).To(Equal(2))
		Expect(p.Predict("b1")).To(BeTrue())
	})

	It("should need two misses to flip a saturated prediction", func() {
		p.Update("b1", true)
		p.Update("b1", true)
		Expect(p.counter("b1")).To(Equal(counterMax))

		p.Update("b1", false)
		Expect(p.Predict("b1")).To(BeTrue())

		p.Update("b1", false)
		Expect(p.Predict("b1")).To(BeFalse())
	})

	It("should never leave the counter bounds", func() {
		for i := 0; i < 10; i++ {
			p.Update("b1", true)
		}
		Expect(p.counter("b1")).To(Equal(counterMax))

		for i := 0; i < 10; i++ {
			p.Update("b1", false)
		}
		Expect(p.counter("b1")).To(Equal(counterMin))
	})
})

var _ = Describe("Clone", func() {
	It("should copy per-branch state deeply", func() {
		p := NewPredictor(TwoBitSaturating)
		p.Update("b1", true)

		clone := p.Clone()
		clone.Update("b1", true)
		clone.Update("b1", true)

		Expect(p.Predict("b1")).To(BeTrue())
		Expect(p.(*twoBitPredictor).counter("b1")).To(Equal(2))
		Expect(clone.(*twoBitPredictor).counter("b1")).To(Equal(counterMax))
	})

	It("should preserve the strategy", func() {
		for _, s := range []Strategy{
			AlwaysTaken, AlwaysNotTaken, OneBit, TwoBitSaturating,
		} {
			Expect(NewPredictor(s).Clone().Strategy()).To(Equal(s))
		}
	})
})

var _ = Describe("ParseStrategy", func() {
	It("should round-trip every label", func() {
		for _, s := range []Strategy{
			AlwaysTaken, AlwaysNotTaken, OneBit, TwoBitSaturating,
		} {
			parsed, ok := ParseStrategy(s.String())
			Expect(ok).To(BeTrue())
			Expect(parsed).To(Equal(s))
		}
	})

	It("should reject unknown labels", func() {
		_, ok := ParseStrategy("oracle")
		Expect(ok).To(BeFalse())
	})
})
