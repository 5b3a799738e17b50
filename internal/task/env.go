package task

import "context"

// Environment is the simulation collaborator. Step is the only blocking call
// in a trial's control loop.
type Environment interface {
	Reset(ctx context.Context) (Observation, error)
	Step(ctx context.Context, a Action) (Observation, error)
	Render() error
	Close() error
	ActionDim() int
}
