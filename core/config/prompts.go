package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the user-facing copy and model instructions. Every field can be
// overridden from a YAML file; unset fields keep their defaults.
type Prompts struct {
	AnswerSystem       string   `yaml:"answer_system"`
	SummarySystem      string   `yaml:"summary_system"`
	SummaryTemperature float64  `yaml:"summary_temperature"`
	ThinkingSteps      []string `yaml:"thinking_steps"`
}

// promptOverrides mirrors Prompts with a pointer temperature so an explicit 0
// can be told apart from an absent key.
type promptOverrides struct {
	AnswerSystem       string   `yaml:"answer_system"`
	SummarySystem      string   `yaml:"summary_system"`
	SummaryTemperature *float64 `yaml:"summary_temperature"`
	ThinkingSteps      []string `yaml:"thinking_steps"`
}

func DefaultPrompts() Prompts {
	return Prompts{
		AnswerSystem:       "You are a helpful IT assistant answering FAQs on MacBook devices.",
		SummarySystem:      "You are an assistant that summarizes user messages for Jira ticket titles.",
		SummaryTemperature: 0.3,
		ThinkingSteps:      []string{"⏳ Thinking...", "⌛ Still working...", "⏳ Almost done..."},
	}
}

// LoadPrompts returns the defaults merged with the overrides in path.
// An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("reading prompts file %s: %w", path, err)
	}

	var overrides promptOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Prompts{}, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}

	if overrides.AnswerSystem != "" {
		prompts.AnswerSystem = overrides.AnswerSystem
	}
	if overrides.SummarySystem != "" {
		prompts.SummarySystem = overrides.SummarySystem
	}
	if overrides.SummaryTemperature != nil {
		prompts.SummaryTemperature = *overrides.SummaryTemperature
	}
	if len(overrides.ThinkingSteps) > 0 {
		prompts.ThinkingSteps = overrides.ThinkingSteps
	}

	return prompts, nil
}
