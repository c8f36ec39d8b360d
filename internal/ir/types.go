// Package ir holds the cloud-agnostic intermediate representation shared by
// every stage of the deployment pipeline: the logical description of a
// system (VMs plus a connection graph) and the physical description that
// results from running the graph through the subnet inference and address
// allocation steps.
package ir

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// CidrIP is an IPv4 address paired with a netmask, e.g. 10.0.1.0/24.
type CidrIP struct {
	IP      net.IP
	Netmask int
}

func (c CidrIP) String() string {
	return fmt.Sprintf("%s/%d", c.IP.String(), c.Netmask)
}

// ParseCidrIP parses a "a.b.c.d/n" string into a CidrIP.
func ParseCidrIP(cidr string) (CidrIP, error) {
	parts := strings.SplitN(cidr, "/", 2)
	if len(parts) != 2 {
		return CidrIP{}, fmt.Errorf("taas: ir: %q is not a valid CIDR address", cidr)
	}
	ip := net.ParseIP(parts[0]).To4()
	if ip == nil {
		return CidrIP{}, fmt.Errorf("taas: ir: %q is not a valid IPv4 address", parts[0])
	}
	mask, err := strconv.Atoi(parts[1])
	if err != nil || mask < 0 || mask > 32 {
		return CidrIP{}, fmt.Errorf("taas: ir: %q is not a valid netmask", parts[1])
	}
	return CidrIP{IP: ip, Netmask: mask}, nil
}

// DiskType enumerates the storage classes a VM's disks can declare. Cloud
// backends are free to map these onto whatever tiers they actually offer.
type DiskType int

const (
	DiskHDD DiskType = iota
	DiskSSD
	DiskNVM
	DiskOther1
	DiskOther2
	DiskOther3
)

func ParseDiskType(s string) DiskType {
	switch strings.ToLower(s) {
	case "ssd":
		return DiskSSD
	case "hdd":
		return DiskHDD
	case "nvm":
		return DiskNVM
	default:
		return DiskOther1
	}
}

// Disk is a single storage volume attached to a VM.
type Disk struct {
	IsMain      bool
	CapacityGB  int
	Type        DiskType
	Grade       uint8
}

func (d Disk) Copy() Disk { return d }

// DefaultDisk mirrors the teacher's "just enough to boot" default used when
// a scenario declares a VM without an explicit storage section.
func DefaultDisk() Disk {
	return Disk{IsMain: true, CapacityGB: 1000, Type: DiskSSD, Grade: 255}
}

// HwConfig is the hardware shape requested for a VM: CPU, RAM and storage.
// It is shared between the logical and physical IR stages — the physical
// stage never needs to add fields to it, only the provider mapping (§H)
// resolves it down into a concrete cloud SKU.
type HwConfig struct {
	CPUFreqMHz int
	CPUCores   int
	RAMGB      int
	Storage    []Disk
}

func (h *HwConfig) Copy() *HwConfig {
	if h == nil {
		return nil
	}
	storage := make([]Disk, len(h.Storage))
	copy(storage, h.Storage)
	return &HwConfig{CPUFreqMHz: h.CPUFreqMHz, CPUCores: h.CPUCores, RAMGB: h.RAMGB, Storage: storage}
}

// Validate aggregates hardware-shape sanity checks the way the teacher's
// disks.DisksConfig.Validate aggregates storage validation: every problem is
// collected rather than returned on first failure, so a caller sees the
// whole picture in one pass.
func (h *HwConfig) Validate(mErr *multierror.Error) {
	if h == nil {
		return
	}
	if h.CPUCores <= 0 {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("taas: ir: cpu_cores must be positive, got %d", h.CPUCores))
	}
	if h.RAMGB <= 0 {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("taas: ir: ram_gb must be positive, got %d", h.RAMGB))
	}
	for _, d := range h.Storage {
		if d.CapacityGB <= 0 {
			mErr.Errors = append(mErr.Errors, fmt.Errorf("taas: ir: disk capacity must be positive, got %d", d.CapacityGB))
		}
	}
}

// DefaultHwConfig is used for the hard-coded orchestrator/webserver VM,
// which never goes through the YAML scenario loader.
func DefaultHwConfig() *HwConfig {
	return &HwConfig{CPUFreqMHz: 5000, CPUCores: 4, RAMGB: 16, Storage: []Disk{DefaultDisk()}}
}

// OsCandidates lists the OS names a VM would accept, ordered from most to
// least specific: a custom (provider-exact) image name, a common nickname
// resolved through the OS map, and an approximate fallback. Only the common
// tier is wired up by the scenario loader today; the other two tiers exist
// so a future scenario syntax can ask for a precise image without a new IR
// type.
type OsCandidates struct {
	CustomOS []string
	CommonOS []string
	ApproxOS []string
}

func CommonOnlyOS(os string) OsCandidates {
	return OsCandidates{CommonOS: []string{os}}
}

func (o OsCandidates) Common() string {
	if len(o.CommonOS) == 0 {
		return ""
	}
	return o.CommonOS[0]
}

func (o OsCandidates) All() []string {
	all := make([]string, 0, len(o.CustomOS)+len(o.CommonOS)+len(o.ApproxOS))
	all = append(all, o.CustomOS...)
	all = append(all, o.CommonOS...)
	all = append(all, o.ApproxOS...)
	return all
}

func (o OsCandidates) Name() string {
	all := o.All()
	if len(all) == 0 {
		return ""
	}
	return all[0]
}

// Auth is the login credential pair a VM is provisioned with.
type Auth struct {
	User     string
	Password string
}

// VM is the IR node shared by the logical and physical pipeline stages. The
// only thing that changes between stages is which fields have been filled
// in by the translators: a logical VM always has OS/HwConfig/Auth set, while
// OverrideConfig and ConfigTemplate are scenario-declared optional fields.
type VM struct {
	Name            string
	OS              OsCandidates
	HwConfig        *HwConfig
	OverrideConfig  string // non-empty means "use this exact cloud SKU, skip the matcher"
	ConfigTemplate  string
	HasRemoteAccess bool
	Role            string
	Auth            Auth
}

func (v VM) Copy() VM {
	v.HwConfig = v.HwConfig.Copy()
	return v
}
