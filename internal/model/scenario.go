package model

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Scenario defaults applied when a scenario file leaves a field unset.
const (
	DefaultLLMTemperature = 0.5
	DefaultTimeoutSeconds = 1800
)

// Scenario is a benchmark task: the instructions the oracle impersonates a user
// pursuing, plus the run budget.
type Scenario struct {
	ID             uuid.UUID `json:"id" yaml:"-"`
	Name           string    `json:"name" yaml:"name"`
	Description    string    `json:"description,omitempty" yaml:"description"`
	Prompt         string    `json:"prompt" yaml:"prompt"`
	LLMModel       string    `json:"llm_model,omitempty" yaml:"llm_model"`
	LLMTemperature float64   `json:"llm_temperature" yaml:"llm_temperature"`
	TimeoutSeconds int       `json:"timeout_seconds" yaml:"timeout_seconds"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
}

// ScenarioFile is the YAML document accepted by `gauntlet scenarios import`.
type ScenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadScenarioFile reads a scenario file, applies defaults and validates each entry.
func LoadScenarioFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenarios(data)
}

// ParseScenarios decodes a YAML scenario document.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var f ScenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	if len(f.Scenarios) == 0 {
		return nil, errors.New("scenario file contains no scenarios")
	}

	seen := make(map[string]bool, len(f.Scenarios))
	for i := range f.Scenarios {
		s := &f.Scenarios[i]
		s.ApplyDefaults()
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("scenarios[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return f.Scenarios, nil
}

// ApplyDefaults fills unset temperature and timeout.
func (s *Scenario) ApplyDefaults() {
	s.Name = strings.TrimSpace(s.Name)
	if s.LLMTemperature == 0 {
		s.LLMTemperature = DefaultLLMTemperature
	}
	if s.TimeoutSeconds == 0 {
		s.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// Validate checks that the scenario can be run.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(s.Prompt) == "" {
		return errors.New("prompt is required")
	}
	if s.LLMTemperature < 0 || s.LLMTemperature > 2 {
		return fmt.Errorf("llm_temperature must be within [0, 2], got %g", s.LLMTemperature)
	}
	if s.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", s.TimeoutSeconds)
	}
	return nil
}
