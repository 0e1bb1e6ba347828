package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/helpmebro911/panel/pkg/manager"
	"github.com/helpmebro911/panel/pkg/storage"
	"github.com/helpmebro911/panel/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a configuration file",
	Long: `Apply a panel configuration from a YAML file.

Examples:
  # Register or update a node
  panel apply -f node.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// PanelResource represents a generic panel resource
type PanelResource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       yaml.Node        `yaml:"spec"`
}

type ResourceMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

type nodeSpecYAML struct {
	Address          string  `yaml:"address"`
	Port             int     `yaml:"port"`
	DataLimit        uint64  `yaml:"dataLimit"`
	UsageCoefficient float64 `yaml:"usageCoefficient"`
	ResetStrategy    string  `yaml:"resetStrategy"`
	ResetTime        *int64  `yaml:"resetTime"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}

	var resource PanelResource
	if err := yaml.Unmarshal(data, &resource); err != nil {
		return fmt.Errorf("failed to parse YAML: %v", err)
	}

	mgr, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer mgr.Shutdown()

	switch resource.Kind {
	case "Node":
		return applyNode(mgr, &resource)
	default:
		return fmt.Errorf("unsupported resource kind: %s", resource.Kind)
	}
}

func applyNode(mgr *manager.Manager, resource *PanelResource) error {
	name := resource.Metadata.Name
	if name == "" {
		return fmt.Errorf("node name is required")
	}

	var ns nodeSpecYAML
	if err := resource.Spec.Decode(&ns); err != nil {
		return fmt.Errorf("failed to parse node spec: %v", err)
	}
	if ns.Address == "" {
		return fmt.Errorf("node address is required")
	}

	// resetTime omitted means interval mode
	resetTime := int64(-1)
	if ns.ResetTime != nil {
		resetTime = *ns.ResetTime
	}

	spec := manager.NodeSpec{
		Name:             name,
		Address:          ns.Address,
		Port:             ns.Port,
		Labels:           resource.Metadata.Labels,
		DataLimit:        ns.DataLimit,
		UsageCoefficient: ns.UsageCoefficient,
		ResetStrategy:    types.ResetStrategy(ns.ResetStrategy),
		ResetTime:        resetTime,
	}

	existing, err := mgr.GetNodeByName(name)
	switch {
	case err == nil:
		fmt.Printf("Updating node: %s\n", name)
		node, err := mgr.ModifyNode(existing.ID, spec)
		if err != nil {
			return fmt.Errorf("failed to update node: %v", err)
		}
		fmt.Printf("✓ Node updated: %s (ID: %d)\n", node.Name, node.ID)
	case errors.Is(err, storage.ErrNodeNotFound):
		fmt.Printf("Creating node: %s\n", name)
		node, err := mgr.AddNode(spec)
		if err != nil {
			return fmt.Errorf("failed to create node: %v", err)
		}
		fmt.Printf("✓ Node created: %s (ID: %d)\n", node.Name, node.ID)
	default:
		return fmt.Errorf("failed to look up node: %v", err)
	}

	return nil
}
