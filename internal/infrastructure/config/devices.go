package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/shared/utils"
)

// Inventory lists the devices to attach at startup.
type Inventory struct {
	Devices []DeviceEntry `yaml:"devices" toml:"devices"`
}

// DeviceEntry is one device and the agent serving it.
type DeviceEntry struct {
	ID             string `yaml:"id" toml:"id"`
	Platform       string `yaml:"platform" toml:"platform"`
	Name           string `yaml:"name" toml:"name"`
	Agent          string `yaml:"agent" toml:"agent"`
	ProjectName    string `yaml:"projectName" toml:"projectName"`
	ProjectDir     string `yaml:"projectDir" toml:"projectDir"`
	ApplicationPID string `yaml:"applicationPid" toml:"applicationPid"`
	PollInterval   string `yaml:"pollInterval" toml:"pollInterval"`
}

// Info converts the entry to device info.
func (e DeviceEntry) Info() (device.Info, error) {
	platform, err := device.ParsePlatform(e.Platform)
	if err != nil {
		return device.Info{}, err
	}
	return device.Info{Identifier: e.ID, Platform: platform, Name: e.Name}, nil
}

// Interval returns the per-device poll interval, or zero when unset.
func (e DeviceEntry) Interval() (time.Duration, error) {
	if e.PollInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("pollInterval: %w", err)
	}
	return d, nil
}

// LoadDevices reads an inventory file. The format follows the extension:
// .yaml/.yml or .toml.
func LoadDevices(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices file: %w", err)
	}

	var inv Inventory
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &inv)
	case ".toml":
		err = toml.Unmarshal(data, &inv)
	default:
		return nil, fmt.Errorf("devices file %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse devices file %s: %w", path, err)
	}

	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("devices file %s: %w", path, err)
	}
	return &inv, nil
}

// Validate checks every entry and rejects duplicate ids.
func (inv *Inventory) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(inv.Devices))
	for i, e := range inv.Devices {
		if err := utils.ValidateDeviceIdentifier(e.ID); err != nil {
			errs = append(errs, fmt.Errorf("device %d: %w", i, err))
			continue
		}
		if seen[e.ID] {
			errs = append(errs, fmt.Errorf("device %s: duplicate id", e.ID))
		}
		seen[e.ID] = true

		if e.Agent == "" {
			errs = append(errs, fmt.Errorf("device %s: agent is required", e.ID))
		}
		if _, err := device.ParsePlatform(e.Platform); err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", e.ID, err))
		}
		if _, err := e.Interval(); err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", e.ID, err))
		}
	}
	return errors.Join(errs...)
}
