package controller_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pushctl/internal/controller"
	"github.com/san-kum/pushctl/internal/task"
)

var _ = Describe("Predictive", func() {
	var (
		s *scene
		p *controller.Predictive
	)

	BeforeEach(func() {
		s = newScene()
		var err error
		p, err = controller.NewPredictive(predictiveConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	enterSeek := func() {
		s.behind(s.goal.TableZ + 0.15)
		s.step(p)
		Expect(p.Phase()).To(Equal(controller.PhaseLower))
		s.behind(s.goal.TableZ - 0.002)
		s.step(p)
		Expect(p.Phase()).To(Equal(controller.PhaseSeek))
	}

	enterMPC := func() {
		enterSeek()
		s.force = []float64{0, 0, 0.5}
		cmd := s.step(p)
		Expect(cmd.Phase).To(Equal(controller.PhaseMPC))
	}

	It("finishes the approach within tolerance from 20 cm", func() {
		var cmd controller.Command
		for i := 0; i < 50 && p.Phase() == controller.PhaseApproach; i++ {
			in := s.input()
			cmd = s.step(p)
			if p.Phase() == controller.PhaseLower {
				back := in.Obs.Object.Sub(in.Error.Direction().Mul(0.05))
				back.Z = s.goal.TableZ + 0.15
				Expect(back.Sub(in.Obs.EndEffector).Norm()).To(BeNumerically("<", 0.004))
			}
		}
		Expect(p.Phase()).To(Equal(controller.PhaseLower))
		Expect(cmd.Phase).To(Equal(controller.PhaseApproach))
	})

	It("slides toward the goal at palm height while seeking", func() {
		enterSeek()
		cmd := s.step(p)
		Expect(cmd.Phase).To(Equal(controller.PhaseSeek))
		Expect(cmd.Delta.Dot(s.dir())).To(BeNumerically("~", 0.03, 1e-6))
	})

	It("switches to mpc on the tick contact appears", func() {
		enterMPC()
		Expect(p.Phase()).To(Equal(controller.PhaseMPC))
	})

	It("switches to mpc on the tick contact appears while lifting", func() {
		enterMPC()
		s.force = []float64{0, 0, 0}
		cmd := s.step(p)
		Expect(cmd.Phase).To(Equal(controller.PhaseSeekLift))

		s.force = []float64{0, 2e-4, 0}
		cmd = s.step(p)
		Expect(cmd.Phase).To(Equal(controller.PhaseMPC))
		Expect(p.Phase()).To(Equal(controller.PhaseMPC))
	})

	It("uses the object motion on the contact tick in the first solve", func() {
		enterSeek()
		s.object = s.object.Add(s.dir().Mul(0.002))
		s.force = []float64{0, 0, 0.5}
		cmd := s.step(p)
		Expect(cmd.Phase).To(Equal(controller.PhaseMPC))

		sol, ok := p.LastSolve()
		Expect(ok).To(BeTrue())
		v0 := sol.Velocity[0]
		Expect(v0.Z).To(BeZero())
		Expect(v0.Norm()).To(BeNumerically("~", 0.12, 1e-9))
		Expect(v0.Dot(s.dir())).To(BeNumerically(">", 0))
	})

	It("ignores forces below the contact threshold", func() {
		enterSeek()
		s.force = []float64{5e-5, 0, 0}
		s.step(p)
		Expect(p.Phase()).To(Equal(controller.PhaseSeek))
	})

	It("drives the object toward the goal while in contact", func() {
		enterMPC()
		cmd := s.step(p)
		Expect(cmd.Phase).To(Equal(controller.PhaseMPC))
		Expect(cmd.Delta.Dot(s.dir())).To(BeNumerically(">", 0))
		sol, ok := p.LastSolve()
		Expect(ok).To(BeTrue())
		Expect(sol.Status.Usable()).To(BeTrue())
	})

	It("lifts and re-seeks when contact is lost", func() {
		enterMPC()
		s.force = []float64{0, 0, 0}
		cmd := s.step(p)
		Expect(cmd.Phase).To(Equal(controller.PhaseSeekLift))
		Expect(cmd.Delta.Z).To(BeNumerically(">", 0))
		s.behind(s.goal.TableZ + 0.06)
		s.step(p)
		Expect(p.Phase()).To(Equal(controller.PhaseSeek))
	})

	It("treats a missing force sensor as no contact", func() {
		enterSeek()
		s.force = nil
		for i := 0; i < 10; i++ {
			s.step(p)
		}
		Expect(p.Phase()).To(Equal(controller.PhaseSeek))
	})

	It("holds through unusable solves and then fails", func() {
		enterMPC()
		for i := 1; i <= 5; i++ {
			s.object.X += 0.01
			cmd, err := p.Act(s.input())
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd.Delta.X).To(BeZero())
			Expect(cmd.Delta.Y).To(BeZero())
			sol, _ := p.LastSolve()
			Expect(sol.Status.Usable()).To(BeFalse())
		}
		s.object.X += 0.01
		_, err := p.Act(s.input())
		Expect(err).To(MatchError(task.ErrSolverFailed))
	})
})
