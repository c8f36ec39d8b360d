package config

import (
	"fmt"

	"github.com/scanzi-taas/orchestrator/internal/ir"
	"github.com/scanzi-taas/orchestrator/internal/postdeploy"
)

// Translate turns a parsed Scenario into the logical IR (a VM list plus a
// connection Network) the rest of the pipeline operates on. It is the
// layer meant to absorb new scenario syntax — the YAML shape and the
// physical IR stages should change as little as possible, per the source
// this was translated from.
//
// Every VM's username and password is also registered into repo's
// post-deployment replacement registry under "machines/<name>/user",
// "machines/<name>/username", "machines/<name>/pass" and
// "machines/<name>/password", so the post-deployment script can reference
// any machine's credentials by name.
func Translate(s *Scenario, g *Global, repo *postdeploy.Registry) ([]ir.VM, ir.Network, error) {
	vmIndex := make(map[string]int, len(s.Machines))
	vms := make([]ir.VM, 0, len(s.Machines))

	for _, m := range s.Machines {
		hw := gatherHwConfig(m.HwConfig, g.DefaultValues)

		override := ""
		if m.OverrideConfig != nil {
			if v, ok := m.OverrideConfig[g.CloudProvider]; ok {
				override = v
			} else {
				fmt.Printf("warning: machine %s has a config override, but not for the currently chosen cloud provider (%s)\n", m.Name, g.CloudProvider)
			}
		}

		auth := ir.Auth{User: m.Auth.Username, Password: m.Auth.Password}

		if repo != nil {
			repo.AddGlobalReplacement(fmt.Sprintf("machines/%s/user", m.Name), auth.User)
			repo.AddGlobalReplacement(fmt.Sprintf("machines/%s/username", m.Name), auth.User)
			repo.AddGlobalReplacement(fmt.Sprintf("machines/%s/pass", m.Name), auth.Password)
			repo.AddGlobalReplacement(fmt.Sprintf("machines/%s/password", m.Name), auth.Password)
		}

		vmIndex[m.Name] = len(vms)
		vms = append(vms, ir.VM{
			Name:            m.Name,
			OS:              ir.CommonOnlyOS(m.OSCommon),
			HwConfig:        hw,
			OverrideConfig:  override,
			ConfigTemplate:  m.ConfigTemplate,
			HasRemoteAccess: m.RemoteAccess,
			Role:            m.Role,
			Auth:            auth,
		})
	}

	net := ir.NewAdjacencyNetwork(len(vms))

	if s.HasFullNetworkOption() {
		for a := 0; a < len(vms); a++ {
			for b := a + 1; b < len(vms); b++ {
				if err := net.AddSymConnection(a, b); err != nil {
					return nil, nil, err
				}
			}
		}
		return vms, net, nil
	}

	for _, c := range s.Connections {
		aIdx, ok := vmIndex[c.A]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUndeclaredMachine, c.A)
		}
		bIdx, ok := vmIndex[c.B]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUndeclaredMachine, c.B)
		}
		err := net.AddSymConnectionWithSpeed(aIdx, bIdx, ir.ConnectionProperties{
			SpeedMbps:         c.SpeedMbps,
			LatencyUs:         c.LatencyUs,
			DropChancePercent: float32(c.PacketDropPercent),
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return vms, net, nil
}

func gatherHwConfig(hw *HwConfig, defaults DefaultValues) *ir.HwConfig {
	if hw == nil {
		return &ir.HwConfig{
			CPUFreqMHz: defaults.CPUFreqMHz,
			CPUCores:   defaults.CPUCores,
			RAMGB:      defaults.RAMGB,
			Storage: []ir.Disk{{
				IsMain:     true,
				CapacityGB: defaults.CapacityGB,
				Type:       ir.ParseDiskType(defaults.Type),
				Grade:      defaults.Grade,
			}},
		}
	}

	storage := make([]ir.Disk, 0, len(hw.Storage))
	for _, d := range hw.Storage {
		storage = append(storage, ir.Disk{
			IsMain:     d.IsOSDisk,
			CapacityGB: d.CapacityGB,
			Type:       ir.ParseDiskType(d.Type),
			Grade:      d.Grade,
		})
	}

	freq := defaults.CPUFreqMHz
	if hw.CPUFreqMHz != nil {
		freq = *hw.CPUFreqMHz
	}
	cores := defaults.CPUCores
	if hw.CPUCores != nil {
		cores = *hw.CPUCores
	}
	ram := defaults.RAMGB
	if hw.RAMGB != nil {
		ram = *hw.RAMGB
	}

	return &ir.HwConfig{CPUFreqMHz: freq, CPUCores: cores, RAMGB: ram, Storage: storage}
}

// ErrUndeclaredMachine is returned when a run-list or connection references
// a machine name the scenario never declared.
var ErrUndeclaredMachine = fmt.Errorf("taas: config: run list references a machine the scenario never declared")
