package framesim

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for scenario validation.
var (
	ErrNoIdentities = errors.New("scenario has no identities")
	ErrBadScenario  = errors.New("invalid scenario")
)

// Identity is one simulated person. Enrolled identities are registered
// before frames start; the rest are only learned through corrections.
type Identity struct {
	Name     string `yaml:"name"`
	Enrolled bool   `yaml:"enrolled"`
}

// Scenario describes what the simulator replays.
type Scenario struct {
	Seed              uint64     `yaml:"seed"`
	Dimension         int        `yaml:"dimension"`
	Spread            float64    `yaml:"spread"`
	Noise             float64    `yaml:"noise"`
	FramesPerIdentity int        `yaml:"frames_per_identity"`
	Identities        []Identity `yaml:"identities"`
}

// DefaultScenario enrolls three of four identities and replays ten noisy
// frames of each.
func DefaultScenario() Scenario {
	return Scenario{
		Seed:              1,
		Dimension:         128,
		Spread:            0.1,
		Noise:             0.01,
		FramesPerIdentity: 10,
		Identities: []Identity{
			{Name: "Alice", Enrolled: true},
			{Name: "Bob", Enrolled: true},
			{Name: "Carol", Enrolled: true},
			{Name: "Dave"},
		},
	}
}

// LoadScenario reads a YAML scenario. Fields left out keep their defaults.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML over DefaultScenario and validates the result.
func ParseScenario(data []byte) (Scenario, error) {
	sc := DefaultScenario()
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("%w: %w", ErrBadScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Validate checks the scenario is usable.
func (s Scenario) Validate() error {
	switch {
	case len(s.Identities) == 0:
		return ErrNoIdentities
	case s.Dimension <= 0:
		return fmt.Errorf("%w: dimension must be positive", ErrBadScenario)
	case s.FramesPerIdentity <= 0:
		return fmt.Errorf("%w: frames_per_identity must be positive", ErrBadScenario)
	case s.Noise < 0 || s.Spread <= 0:
		return fmt.Errorf("%w: noise must be >= 0 and spread > 0", ErrBadScenario)
	}
	seen := make(map[string]struct{}, len(s.Identities))
	for _, id := range s.Identities {
		if id.Name == "" {
			return fmt.Errorf("%w: identity without name", ErrBadScenario)
		}
		if _, dup := seen[id.Name]; dup {
			return fmt.Errorf("%w: duplicate identity %q", ErrBadScenario, id.Name)
		}
		seen[id.Name] = struct{}{}
	}
	return nil
}
