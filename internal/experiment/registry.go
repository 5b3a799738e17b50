package experiment

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/controller"
	"github.com/san-kum/pushctl/internal/env"
	"github.com/san-kum/pushctl/internal/task"
)

type ControllerFactory func(cfg *config.Config, log *zap.SugaredLogger) (controller.Controller, error)

type EnvFactory func(cfg *config.Config, log *zap.SugaredLogger) (task.Environment, error)

type Registry struct {
	controllers map[string]ControllerFactory
	envs        map[string]EnvFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		controllers: make(map[string]ControllerFactory),
		envs:        make(map[string]EnvFactory),
	}

	r.controllers[config.VariantPID] = func(cfg *config.Config, log *zap.SugaredLogger) (controller.Controller, error) {
		return controller.NewPusher(cfg.PusherConfig(), controller.WithLogger(log))
	}
	r.controllers[config.VariantMPC] = func(cfg *config.Config, log *zap.SugaredLogger) (controller.Controller, error) {
		return controller.NewPredictive(cfg.PredictiveConfig(), controller.WithLogger(log))
	}

	r.envs[config.EnvKinematic] = func(cfg *config.Config, log *zap.SugaredLogger) (task.Environment, error) {
		return env.NewKinematic(cfg.Scene, cfg.Trial, log), nil
	}

	return r
}

// RegisterController adds or replaces a variant.
func (r *Registry) RegisterController(name string, fn ControllerFactory) {
	r.controllers[name] = fn
}

// RegisterEnv adds or replaces an environment.
func (r *Registry) RegisterEnv(name string, fn EnvFactory) {
	r.envs[name] = fn
}

func (r *Registry) GetController(cfg *config.Config, log *zap.SugaredLogger) (controller.Controller, error) {
	fn, ok := r.controllers[cfg.Variant]
	if !ok {
		return nil, fmt.Errorf("unknown variant: %s", cfg.Variant)
	}
	return fn(cfg, log)
}

func (r *Registry) GetEnv(cfg *config.Config, log *zap.SugaredLogger) (task.Environment, error) {
	fn, ok := r.envs[cfg.Env]
	if !ok {
		return nil, fmt.Errorf("unknown env: %s", cfg.Env)
	}
	return fn(cfg, log)
}

func (r *Registry) ListVariants() []string { return sortedKeys(r.controllers) }
func (r *Registry) ListEnvs() []string     { return sortedKeys(r.envs) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
