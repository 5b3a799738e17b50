package controller_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pushctl/internal/controller"
)

var _ = Describe("Pusher", func() {
	var (
		s *scene
		p *controller.Pusher
	)

	BeforeEach(func() {
		s = newScene()
		var err error
		p, err = controller.NewPusher(pusherConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	// enterPush walks the machine into push without moving the object.
	enterPush := func() {
		s.behind(s.goal.TableZ + 0.15)
		p.Act(s.input())
		Expect(p.Phase()).To(Equal(controller.PhaseLower))
		s.behind(s.goal.TableZ + 0.002)
		p.Act(s.input())
		Expect(p.Phase()).To(Equal(controller.PhasePush))
	}

	It("starts in approach", func() {
		Expect(p.Phase()).To(Equal(controller.PhaseApproach))
		Expect(p.Name()).To(Equal("push_pid"))
	})

	It("reaches the back pose from 20 cm away and starts lowering", func() {
		for i := 0; i < 50 && p.Phase() == controller.PhaseApproach; i++ {
			s.step(p)
		}
		Expect(p.Phase()).To(Equal(controller.PhaseLower))
		for i := 0; i < 50 && p.Phase() == controller.PhaseLower; i++ {
			s.step(p)
		}
		Expect(p.Phase()).To(Equal(controller.PhasePush))
		Expect(s.ee.Z).To(BeNumerically("~", s.goal.TableZ+0.002, 0.0008))
	})

	It("re-approaches when the error stops shrinking for a full window", func() {
		enterPush()
		for i := 0; i < 59; i++ {
			cmd, err := p.Act(s.input())
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd.Phase).To(Equal(controller.PhasePush), "tick %d", i)
		}
		cmd, err := p.Act(s.input())
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Phase()).To(Equal(controller.PhaseApproach))
		Expect(cmd.Phase).To(Equal(controller.PhaseApproach))
		Expect(cmd.Delta.Z).To(BeNumerically(">", 0))
		Expect(p.Reapproaches()).To(Equal(1))
	})

	It("keeps pushing while the object makes progress", func() {
		enterPush()
		d := s.dir()
		for i := 0; i < 120; i++ {
			s.object = s.object.Add(d.Mul(0.0001))
			s.behind(s.goal.TableZ + 0.002)
			cmd, err := p.Act(s.input())
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd.Phase).To(Equal(controller.PhasePush))
			Expect(cmd.Delta.Dot(d)).To(BeNumerically(">", 0))
		}
	})

	It("re-approaches when the object slides off the pushing line", func() {
		enterPush()
		s.ee.X += 0.2
		cmd, err := p.Act(s.input())
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd.Phase).To(Equal(controller.PhaseApproach))
	})

	It("clears the stall window on every entry to push", func() {
		enterPush()
		for i := 0; i < 30; i++ {
			p.Act(s.input())
		}
		s.ee.X += 0.2
		p.Act(s.input())
		Expect(p.Phase()).To(Equal(controller.PhaseApproach))
		enterPush()
		for i := 0; i < 59; i++ {
			p.Act(s.input())
			Expect(p.Phase()).To(Equal(controller.PhasePush))
		}
	})
})
