package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultValues mirrors config/default_values.yml: the fallback hardware
// and OS shape used whenever a scenario machine omits a field.
type DefaultValues struct {
	CPUFreqMHz     int    `yaml:"cpu_freq_mhz"`
	CPUCores       int    `yaml:"cpu_cores"`
	RAMGB          int    `yaml:"ram_gb"`
	CapacityGB     int    `yaml:"capacity_gb"`
	Type           string `yaml:"type"`
	Grade          uint8  `yaml:"grade"`
	OSCommon       string `yaml:"os_common"`
	Location       string `yaml:"location"`
	RemoteAccess   bool   `yaml:"remote_access"`
	ConfigTemplate string `yaml:"config_template"`
	CustomScript   string `yaml:"custom_script"`
}

// SSHConfig mirrors config/ssh.yml.
type SSHConfig struct {
	CustomArgs string `yaml:"custom_args"`
}

// ShellConfig mirrors config/shell.yml.
type ShellConfig struct {
	Shell        string `yaml:"shell"`
	DownloadTool string `yaml:"download_tool"`
}

// Global bundles every account-wide setting loaded from config/, built once
// per process and threaded explicitly wherever it's needed — no package in
// this codebase reaches for a package-level singleton to read it.
type Global struct {
	CloudProvider     string
	CommonOSImage     map[string]string
	DefaultValues     DefaultValues
	ProvidersConfig   map[string]string
	Network           map[string]string
	SSH               SSHConfig
	Shell             ShellConfig
	WebserverOverride string // active provider's config/webserver.yml override_vm entry, "" if none
}

type providerFile struct {
	Provider string `yaml:"provider"`
}

func readYAMLFile(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("taas: config: could not open %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("taas: config: could not parse %s: %w", path, err)
	}
	return nil
}

// LoadGlobal reads every config/ YAML file and assembles a Global. Unlike
// the source this was translated from, which lazily initializes each field
// behind its own lazy_static! the first time it's touched, this loads
// everything eagerly in one pass — a deployment's config is small enough
// that there's nothing to gain from deferring any of it, and eager loading
// surfaces a malformed config file at startup instead of partway through a
// run.
func LoadGlobal() (*Global, error) {
	var pf providerFile
	if err := readYAMLFile(ProviderPath, &pf); err != nil {
		return nil, err
	}
	if pf.Provider == "" {
		return nil, fmt.Errorf("taas: config: no cloud provider set in %s", ProviderPath)
	}

	var rawProvidersConfig map[string]map[string]string
	if err := readYAMLFile(ProvidersConfigPath, &rawProvidersConfig); err != nil {
		return nil, err
	}
	providersConfig, ok := rawProvidersConfig[pf.Provider]
	if !ok {
		return nil, fmt.Errorf("taas: config: %s has no entry for provider %q", ProvidersConfigPath, pf.Provider)
	}

	var rawCommonOS map[string]map[string]string
	if err := readYAMLFile(CommonOSPath, &rawCommonOS); err != nil {
		return nil, err
	}
	commonOSImage := make(map[string]string, len(rawCommonOS))
	for name, perProvider := range rawCommonOS {
		if image, ok := perProvider[pf.Provider]; ok && image != "" {
			commonOSImage[name] = image
		}
	}

	var network map[string]string
	if err := readYAMLFile(NetworkConfigPath, &network); err != nil {
		return nil, err
	}

	var ssh SSHConfig
	if err := readYAMLFile(SSHConfigPath, &ssh); err != nil {
		return nil, err
	}
	if ssh.CustomArgs == "~" {
		ssh.CustomArgs = ""
	}

	var shell ShellConfig
	if err := readYAMLFile(ShellConfigPath, &shell); err != nil {
		return nil, err
	}
	if shell.DownloadTool == "" {
		shell.DownloadTool = "curl"
	}
	if shell.DownloadTool != "curl" && shell.DownloadTool != "wget" {
		return nil, fmt.Errorf("taas: config: %s: download_tool must be either curl or wget, got %q", ShellConfigPath, shell.DownloadTool)
	}

	var defaultValues DefaultValues
	if err := readYAMLFile(DefaultValuesPath, &defaultValues); err != nil {
		return nil, err
	}

	// config/webserver.yml is optional: a deployment that never overrides the
	// orchestrator VM's size for any provider doesn't need the file at all.
	var webserverOverride string
	var wsFile struct {
		OverrideVM map[string]string `yaml:"override_vm"`
	}
	if raw, err := os.ReadFile(WebserverConfigPath); err == nil {
		if err := yaml.Unmarshal(raw, &wsFile); err != nil {
			return nil, fmt.Errorf("taas: config: could not parse %s: %w", WebserverConfigPath, err)
		}
		webserverOverride = wsFile.OverrideVM[pf.Provider]
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("taas: config: could not open %s: %w", WebserverConfigPath, err)
	}

	return &Global{
		CloudProvider:     pf.Provider,
		CommonOSImage:     commonOSImage,
		DefaultValues:     defaultValues,
		ProvidersConfig:   providersConfig,
		Network:           network,
		SSH:               ssh,
		Shell:             shell,
		WebserverOverride: webserverOverride,
	}, nil
}
