// Package config loads the YAML configuration files and scenario
// description that drive a deployment: the account-wide settings under
// config/ and the per-deployment scenario under scenarios/.
package config

// Path constants for every configuration and scenario file this codebase
// reads, kept in one place the way the original paths module centralizes
// them so a deployment's layout only needs to change in one spot.
const (
	ProviderPath             = "config/provider.yml"
	CommonOSPath             = "config/common_os.yml"
	DefaultValuesPath        = "config/default_values.yml"
	ProvidersConfigPath      = "config/providers_config.yml"
	WebserverConfigPath      = "config/webserver.yml"
	NetworkConfigPath        = "config/network.yml"
	SSHConfigPath            = "config/ssh.yml"
	ShellConfigPath          = "config/shell.yml"
	DeploymentTemplatesPath  = "deployment_templates"
	ScenarioPath             = "scenarios"
	SystemYamlName           = "system.yml"
	PostDeploymentScriptName = "post_deployment.sh"
	RunStepsFileName         = "pipeline.run"
)
