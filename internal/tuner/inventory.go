package tuner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Inventory is the receiving topology loaded at startup: which adapters
// exist, which muxes they can reach, which services those muxes carry
// and how services map onto channels.
type Inventory struct {
	Adapters []AdapterSpec `yaml:"adapters"`
	Muxes    []MuxSpec     `yaml:"muxes"`
	Services []ServiceSpec `yaml:"services"`
	Channels []ChannelSpec `yaml:"channels"`
}

// AdapterSpec is one physical tuner.
type AdapterSpec struct {
	Name    string `yaml:"name"`
	Network string `yaml:"network"`
}

// MuxSpec is one multiplex on a network.
type MuxSpec struct {
	Name      string `yaml:"name"`
	Network   string `yaml:"network"`
	Frequency int    `yaml:"frequency,omitempty"`
}

// ServiceSpec is one service carried by a mux.
type ServiceSpec struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider,omitempty"`
	Mux      string `yaml:"mux"`
	SID      int    `yaml:"sid"`
	PCR      int    `yaml:"pcr,omitempty"`
	PMT      int    `yaml:"pmt,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// ChannelSpec maps a channel to the services that can carry it.
type ChannelSpec struct {
	Name     string   `yaml:"name"`
	Services []string `yaml:"services"`
}

// LoadInventory reads and validates an inventory file.
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory yaml: %w", err)
	}

	if err := inv.validate(); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (inv *Inventory) validate() error {
	muxes := make(map[string]MuxSpec, len(inv.Muxes))
	for _, m := range inv.Muxes {
		if m.Name == "" {
			return fmt.Errorf("inventory: mux with empty name")
		}
		muxes[m.Name] = m
	}

	networks := make(map[string]bool)
	for _, a := range inv.Adapters {
		if a.Name == "" {
			return fmt.Errorf("inventory: adapter with empty name")
		}
		networks[a.Network] = true
	}

	svcNames := make(map[string]bool, len(inv.Services))
	for _, svc := range inv.Services {
		if svc.Name == "" {
			return fmt.Errorf("inventory: service with empty name")
		}
		if svcNames[svc.Name] {
			return fmt.Errorf("inventory: duplicate service %q", svc.Name)
		}
		svcNames[svc.Name] = true
		if _, ok := muxes[svc.Mux]; !ok {
			return fmt.Errorf("inventory: service %q references unknown mux %q", svc.Name, svc.Mux)
		}
	}

	for _, ch := range inv.Channels {
		for _, name := range ch.Services {
			if !svcNames[name] {
				return fmt.Errorf("inventory: channel %q references unknown service %q", ch.Name, name)
			}
		}
	}
	return nil
}
