// Package persona loads persona definitions: who the simulated user is
// and the scripted journey they walk through the product.
package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona describes a simulated user and their journey.
type Persona struct {
	Name         string   `yaml:"name"`
	Goal         string   `yaml:"goal"`
	Traits       []string `yaml:"traits"`
	Frustrations []string `yaml:"frustrations"`
	Journey      []Step   `yaml:"journey"`
}

// StepKind identifies a journey step.
type StepKind string

const (
	StepNavigate   StepKind = "navigate"
	StepFill       StepKind = "fill"
	StepClick      StepKind = "click"
	StepExpect     StepKind = "expect"
	StepWait       StepKind = "wait"
	StepScreenshot StepKind = "screenshot"
)

// Step is one journey action. Which fields are populated depends on
// Kind.
type Step struct {
	Kind     StepKind
	URL      string // navigate
	Selector string // fill, click, expect
	Value    string // fill
	Count    int    // expect
	Millis   int    // wait
	Name     string // screenshot
}

// UnmarshalYAML decodes the single-key step form used in persona files,
// e.g. `- click: "text=Sign up"` or `- fill: {selector: "#q", value: "x"}`.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: journey step must be a single-key mapping", node.Line)
	}
	kind := node.Content[0].Value
	val := node.Content[1]

	switch StepKind(kind) {
	case StepNavigate:
		s.Kind = StepNavigate
		return val.Decode(&s.URL)
	case StepClick:
		s.Kind = StepClick
		return val.Decode(&s.Selector)
	case StepScreenshot:
		s.Kind = StepScreenshot
		return val.Decode(&s.Name)
	case StepWait:
		s.Kind = StepWait
		return val.Decode(&s.Millis)
	case StepFill:
		s.Kind = StepFill
		var f struct {
			Selector string `yaml:"selector"`
			Value    string `yaml:"value"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		s.Selector, s.Value = f.Selector, f.Value
		return nil
	case StepExpect:
		s.Kind = StepExpect
		var e struct {
			Selector string `yaml:"selector"`
			Count    int    `yaml:"count"`
		}
		if err := val.Decode(&e); err != nil {
			return err
		}
		s.Selector, s.Count = e.Selector, e.Count
		return nil
	default:
		return fmt.Errorf("line %d: unknown journey step %q", node.Line, kind)
	}
}

// Parse decodes and validates a persona definition.
func Parse(data []byte) (Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("invalid persona YAML: %w", err)
	}
	if err := p.validate(); err != nil {
		return Persona{}, err
	}
	return p, nil
}

// Load reads and parses a persona file.
func Load(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, err
	}
	return Parse(data)
}

func (p Persona) validate() error {
	if p.Name == "" {
		return fmt.Errorf("persona is missing a name")
	}
	if len(p.Journey) == 0 {
		return fmt.Errorf("persona %q has no journey steps", p.Name)
	}
	for i, step := range p.Journey {
		if err := step.validate(); err != nil {
			return fmt.Errorf("journey step %d: %w", i+1, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	switch s.Kind {
	case StepNavigate:
		if s.URL == "" {
			return fmt.Errorf("navigate needs a URL")
		}
	case StepFill:
		if s.Selector == "" {
			return fmt.Errorf("fill needs a selector")
		}
	case StepClick:
		if s.Selector == "" {
			return fmt.Errorf("click needs a selector")
		}
	case StepExpect:
		if s.Selector == "" {
			return fmt.Errorf("expect needs a selector")
		}
		if s.Count < 0 {
			return fmt.Errorf("expect count must not be negative")
		}
	case StepWait:
		if s.Millis <= 0 {
			return fmt.Errorf("wait needs a positive duration in ms")
		}
	case StepScreenshot:
		if s.Name == "" {
			return fmt.Errorf("screenshot needs a name")
		}
		if strings.ContainsAny(s.Name, `/\`) {
			return fmt.Errorf("screenshot name %q must be a plain filename", s.Name)
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// Describe renders a short text profile of the persona for prompts and
// logs.
func (p Persona) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	if p.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", p.Goal)
	}
	if len(p.Traits) > 0 {
		fmt.Fprintf(&b, "Traits: %s\n", strings.Join(p.Traits, ", "))
	}
	if len(p.Frustrations) > 0 {
		fmt.Fprintf(&b, "Frustrations: %s\n", strings.Join(p.Frustrations, ", "))
	}
	return b.String()
}
