package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is the near-raw shape of a scenario YAML file — the "yamlsir"
// layer. Its job is just to mirror the file syntax; internal/ir.VM and
// internal/ir.Network are what the rest of the pipeline actually operates
// on, built from this by Translate.
type Scenario struct {
	Version     int            `yaml:"version"`
	Machines    []Machine      `yaml:"machines"`
	Options     []string       `yaml:"options"`
	Connections []Connection   `yaml:"connections"`
}

// Machine is one scenario-declared VM.
type Machine struct {
	Name           string            `yaml:"name"`
	OSCommon       string            `yaml:"os_common"`
	HwConfig       *HwConfig         `yaml:"hwconfig"`
	OverrideConfig map[string]string `yaml:"override_config"`
	Auth           Auth              `yaml:"auth"`
	RemoteAccess   bool              `yaml:"remote_access"`
	ConfigTemplate string            `yaml:"config_template"`
	Role           string            `yaml:"role"`
}

// Auth is a VM's login credential pair as declared in the scenario.
type Auth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HwConfig is a VM's optionally-declared hardware request. Any omitted
// field falls back to the account-wide default values file.
type HwConfig struct {
	CPUFreqMHz *int   `yaml:"cpu_freq_mhz"`
	CPUCores   *int   `yaml:"cpu_cores"`
	RAMGB      *int   `yaml:"ram_gb"`
	Storage    []Disk `yaml:"storage"`
}

// Disk is one storage volume declared for a machine.
type Disk struct {
	Name       string `yaml:"name"`
	IsOSDisk   bool   `yaml:"is_os_disk"`
	CapacityGB int    `yaml:"capacity_gb"`
	Type       string `yaml:"type"`
	Grade      uint8  `yaml:"grade"`
}

// Connection is one scenario-declared link between two named machines.
type Connection struct {
	A                  string  `yaml:"a"`
	B                  string  `yaml:"b"`
	SpeedMbps          int     `yaml:"speed_mbps"`
	PacketDropPercent  float64 `yaml:"packet_drop_percent"`
	LatencyUs          int     `yaml:"latency_us"`
}

// optionFullNetwork is the scenario "options" entry that asks for every
// pair of machines to be connected, bypassing the "connections" list
// entirely.
const optionFullNetwork = "full_network"

// HasFullNetworkOption reports whether the scenario asked for the
// full-mesh shortcut.
func (s *Scenario) HasFullNetworkOption() bool {
	for _, o := range s.Options {
		if o == optionFullNetwork {
			return true
		}
	}
	return false
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taas: config: could not open scenario file %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("taas: config: could not parse scenario file %s: %w", path, err)
	}
	return &s, nil
}
