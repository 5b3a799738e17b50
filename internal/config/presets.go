package config

import "sort"

// Presets maps variant → preset name → tweak applied to DefaultConfig.
var Presets = map[string]map[string]func(*Config){
	VariantPID: {
		"default": func(*Config) {},
		"fast": func(c *Config) {
			c.PID.VMax, c.PID.VMin = 0.25, 0.08
			c.Task.Timeout = 60
		},
		"patient": func(c *Config) {
			c.PID.StallWindow = 2
			c.PID.StallThreshold = 0.001
			c.Task.Timeout = 300
		},
		"jitter": func(c *Config) {
			c.Scene.Jitter = 0.02
		},
	},
	VariantMPC: {
		"default": func(*Config) {},
		"fast": func(c *Config) {
			c.MPC.Params.VMax = 0.6
			c.MPC.Params.UMax = 5
			c.MPC.SeekSpeed = 0.05
		},
		"patient": func(c *Config) {
			c.Task.Timeout = 90
			c.MPC.Params.Horizon = 30
			c.MPC.MaxSolverFailures = 15
		},
		"blind": func(c *Config) {
			c.Scene.NoContactSensor = true
		},
		"jitter": func(c *Config) {
			c.Scene.Jitter = 0.02
		},
	},
}

// GetPreset returns a fresh config for variant and preset, or nil.
func GetPreset(variant, preset string) *Config {
	variantPresets, ok := Presets[variant]
	if !ok {
		return nil
	}
	tweak, ok := variantPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig(variant)
	tweak(cfg)
	return cfg
}

func ListPresets(variant string) []string {
	variantPresets, ok := Presets[variant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(variantPresets))
	for name := range variantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
