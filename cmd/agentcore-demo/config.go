package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentcore-ai/agentcore/engine"
)

// registryFile is the on-disk shape of an agent registry, loaded via
// gopkg.in/yaml.v3 (spec §9 domain stack: configuration file format).
type registryFile struct {
	Agents []agentSpec `yaml:"agents"`
}

// agentSpec describes one engine.Agent in a way that survives YAML: tools
// and handoffs are referenced by name and resolved against the builtin demo
// catalog in tools.go, since a Go func (Tool.Execute) cannot be expressed in
// configuration.
type agentSpec struct {
	Name            string   `yaml:"name"`
	Instructions    string   `yaml:"instructions"`
	Tools           []string `yaml:"tools"`
	AllowedHandoffs []string `yaml:"allowed_handoffs"`
	Model           string   `yaml:"model"`
	OutputSchema    any      `yaml:"output_schema"`
}

// loadRegistry reads a YAML agent registry file and resolves every named
// tool reference against the builtin demo tool catalog.
func loadRegistry(path string) (engine.Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent registry: %w", err)
	}
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing agent registry: %w", err)
	}
	if len(file.Agents) == 0 {
		return nil, fmt.Errorf("agent registry %s declares no agents", path)
	}

	reg := make(engine.Registry, len(file.Agents))
	for _, spec := range file.Agents {
		if spec.Name == "" {
			return nil, fmt.Errorf("agent registry %s: agent with no name", path)
		}
		ag := engine.Agent{
			Name:            spec.Name,
			InstructionFn:   staticInstruction(spec.Instructions),
			AllowedHandoffs: spec.AllowedHandoffs,
			ModelConfig:     engine.ModelConfig{Name: spec.Model},
		}
		for _, toolName := range spec.Tools {
			t, ok := demoTools[toolName]
			if !ok {
				return nil, fmt.Errorf("agent %s: unknown tool %q (available: %s)", spec.Name, toolName, availableToolNames())
			}
			ag.Tools = append(ag.Tools, t)
		}
		if spec.OutputSchema != nil {
			schemaJSON, err := json.Marshal(spec.OutputSchema)
			if err != nil {
				return nil, fmt.Errorf("agent %s: output_schema: %w", spec.Name, err)
			}
			ag.OutputSchema = schemaJSON
		}
		reg[spec.Name] = ag
	}
	return reg, nil
}
