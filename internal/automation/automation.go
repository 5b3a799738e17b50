// Package automation runs scripted campaigns: YAML lists of batches, each a
// variant and preset with optional overrides.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/experiment"
	"github.com/san-kum/pushctl/internal/storage"
)

var ErrEmptyCampaign = errors.New("automation: campaign has no steps")

// Campaign defines a scripted sequence of batches.
type Campaign struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []CampaignStep `yaml:"steps"`

	dir string
}

// CampaignStep is one batch. Config, when set, is a config file relative to
// the campaign file and takes precedence over Variant and Preset.
type CampaignStep struct {
	Name       string         `yaml:"name"`
	Variant    string         `yaml:"variant"`
	Preset     string         `yaml:"preset"`
	Config     string         `yaml:"config"`
	FirstTrial int            `yaml:"first_trial"`
	Trials     int            `yaml:"trials"`
	Workers    int            `yaml:"workers"`
	Overrides  map[string]any `yaml:"overrides"`
	Save       bool           `yaml:"save"`
}

// StepResult holds the outcomes of one step and the run IDs of those saved.
type StepResult struct {
	Step     string
	Outcomes []experiment.Outcome
	Summary  experiment.Summary
	RunIDs   []string
}

func LoadCampaign(path string) (*Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var campaign Campaign
	if err := yaml.Unmarshal(data, &campaign); err != nil {
		return nil, err
	}
	if len(campaign.Steps) == 0 {
		return nil, ErrEmptyCampaign
	}
	campaign.dir = filepath.Dir(path)

	return &campaign, nil
}

// Resolve builds the config for step i.
func (c *Campaign) Resolve(i int) (*config.Config, error) {
	step := c.Steps[i]
	var cfg *config.Config
	switch {
	case step.Config != "":
		path := step.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.dir, path)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case step.Preset != "":
		cfg = config.GetPreset(step.Variant, step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q for variant %q", step.Preset, step.Variant)
		}
	default:
		cfg = config.DefaultConfig(step.Variant)
	}
	cfg.Trial = step.FirstTrial

	cfg, err := cfg.Override(step.Overrides)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (s CampaignStep) label(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step-%d", i+1)
}

// RunCampaign executes every step in order. store may be nil when no step
// saves. emit, if set, sees every outcome as its trial ends.
func RunCampaign(
	ctx context.Context,
	campaign *Campaign,
	exp *experiment.Experiment,
	store *storage.Store,
	log *zap.SugaredLogger,
	emit func(step string, o experiment.Outcome),
) ([]StepResult, error) {
	if len(campaign.Steps) == 0 {
		return nil, ErrEmptyCampaign
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	results := make([]StepResult, 0, len(campaign.Steps))

	for i, step := range campaign.Steps {
		name := step.label(i)
		cfg, err := campaign.Resolve(i)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Save && store == nil {
			return results, fmt.Errorf("step %d: save requested without a store", i+1)
		}
		trials := step.Trials
		if trials <= 0 {
			trials = 1
		}
		log.Infow("campaign step", "step", name, "index", i+1, "of", len(campaign.Steps),
			"variant", cfg.Variant, "trials", trials)

		var stepEmit func(experiment.Outcome)
		if emit != nil {
			stepEmit = func(o experiment.Outcome) { emit(name, o) }
		}
		outcomes, err := exp.Batch(ctx, cfg, trials, step.Workers, step.Save, stepEmit)
		res := StepResult{Step: name, Outcomes: outcomes, Summary: experiment.Summarize(outcomes)}
		if err != nil {
			results = append(results, res)
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		if step.Save {
			for _, o := range outcomes {
				id, err := store.Save(o.StorageRun())
				if err != nil {
					results = append(results, res)
					return results, fmt.Errorf("step %d save: %w", i+1, err)
				}
				res.RunIDs = append(res.RunIDs, id)
			}
		}

		log.Infow("campaign step done", "step", name,
			"success", res.Summary.Success, "timeout", res.Summary.Timeout, "failure", res.Summary.Failure)
		results = append(results, res)
	}

	return results, nil
}
