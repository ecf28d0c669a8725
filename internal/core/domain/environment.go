package domain

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// CachePort is the container port the cache service must publish.
const CachePort = 6379

// defaultNetworkDriver is what compose uses when a network names no driver.
const defaultNetworkDriver = "bridge"

// Descriptor is a parsed development container descriptor.
type Descriptor struct {
	// Path is the file the descriptor was loaded from.
	Path string

	// Services maps service name to its definition.
	Services map[string]ServiceSpec

	// Networks maps network name to its definition.
	Networks map[string]NetworkSpec
}

// ServiceSpec describes one container.
type ServiceSpec struct {
	Image     string
	Build     string
	Command   []string
	Volumes   []VolumeMount
	Ports     []PortMapping
	Networks  []string
	DependsOn []string
}

// NetworkSpec describes one network.
type NetworkSpec struct {
	Driver string
}

// EffectiveDriver returns the driver, defaulting to bridge.
func (n NetworkSpec) EffectiveDriver() string {
	if n.Driver == "" {
		return defaultNetworkDriver
	}
	return n.Driver
}

// VolumeMount is a volume entry of a service.
type VolumeMount struct {
	Source string
	Target string
	Mode   string
}

// IsBind reports whether the mount binds a host path rather than a named volume.
func (v VolumeMount) IsBind() bool {
	return strings.HasPrefix(v.Source, ".") || strings.HasPrefix(v.Source, "/") || strings.HasPrefix(v.Source, "~")
}

// WorkspaceRoots are the container folders a workspace mount may target.
// VS Code uses /workspaces; hand-written compose files often use /workspace.
var WorkspaceRoots = []string{"/workspace", "/workspaces"}

// IsWorkspace reports whether the mount binds a host directory onto a
// workspace folder (a workspace root or a folder below one).
func (v VolumeMount) IsWorkspace() bool {
	if !v.IsBind() || !strings.HasPrefix(v.Target, "/") {
		return false
	}
	target := path.Clean(v.Target)
	for _, root := range WorkspaceRoots {
		if target == root || strings.HasPrefix(target, root+"/") {
			return true
		}
	}
	return false
}

// PortMapping is a published port of a service.
type PortMapping struct {
	HostIP    string
	Host      int
	Container int
	Protocol  string
}

// ServiceNames returns the service names in sorted order.
func (d *Descriptor) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WorkspaceService returns the first service (by name) that mounts the
// workspace folder. Other bind mounts, such as a cache data directory, do
// not count.
func (d *Descriptor) WorkspaceService() (string, bool) {
	for _, name := range d.ServiceNames() {
		for _, v := range d.Services[name].Volumes {
			if v.IsWorkspace() {
				return name, true
			}
		}
	}
	return "", false
}

// CacheService returns the first service (by name) publishing the cache port.
func (d *Descriptor) CacheService() (string, PortMapping, bool) {
	for _, name := range d.ServiceNames() {
		for _, p := range d.Services[name].Ports {
			if p.Container == CachePort {
				return name, p, true
			}
		}
	}
	return "", PortMapping{}, false
}

// CacheEndpoint returns the host address and port the cache is reachable on
// from the host side of the published mapping.
func (d *Descriptor) CacheEndpoint() (string, int, error) {
	_, port, ok := d.CacheService()
	if !ok {
		return "", 0, fmt.Errorf("%w: no service publishes port %d", ErrInvalidDescriptor, CachePort)
	}
	host := port.HostIP
	if host == "" || host == "0.0.0.0" {
		host = DefaultRedisHost
	}
	hostPort := port.Host
	if hostPort == 0 {
		hostPort = port.Container
	}
	return host, hostPort, nil
}

// Validate checks the devcontainer contract: exactly two services, one of
// which mounts the workspace and a different one that publishes the cache
// port, plus a named bridge network every service joins. All violations are
// reported together.
func (d *Descriptor) Validate() error {
	var problems []error

	if len(d.Services) != 2 {
		problems = append(problems, fmt.Errorf("expected exactly 2 services, found %d", len(d.Services)))
	}

	workspace, hasWorkspace := d.WorkspaceService()
	if !hasWorkspace {
		problems = append(problems, errors.New("no service mounts the workspace directory"))
	}

	cache, _, hasCache := d.CacheService()
	if !hasCache {
		problems = append(problems, fmt.Errorf("no service publishes port %d", CachePort))
	}

	if hasWorkspace && hasCache && workspace == cache {
		problems = append(problems, fmt.Errorf("service %q is both workspace and cache", workspace))
	}

	bridge := d.bridgeNetwork()
	if bridge == "" {
		problems = append(problems, errors.New("no named bridge network declared"))
	} else {
		for _, name := range d.ServiceNames() {
			if !contains(d.Services[name].Networks, bridge) {
				problems = append(problems, fmt.Errorf("service %q does not join network %q", name, bridge))
			}
		}
	}

	for _, name := range d.ServiceNames() {
		for _, dep := range d.Services[name].DependsOn {
			if _, ok := d.Services[dep]; !ok {
				problems = append(problems, fmt.Errorf("service %q depends on unknown service %q", name, dep))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidDescriptor, errors.Join(problems...))
}

// bridgeNetwork returns the first named network (by name) using the bridge driver.
func (d *Descriptor) bridgeNetwork() string {
	names := make([]string, 0, len(d.Networks))
	for name := range d.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if d.Networks[name].EffectiveDriver() == defaultNetworkDriver {
			return name
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Plan is an ordered list of bootstrap steps.
type Plan struct {
	Steps []Step
}

// Step is one command of a bootstrap plan.
type Step struct {
	// Name labels the step in output and errors.
	Name string

	// Dir is the working directory, relative to the plan root.
	Dir string

	// Run is the argv to execute.
	Run []string

	// Requires lists files (relative to Dir) that must exist before running.
	Requires []string
}

// Validate checks every step has a name and a command.
func (p Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: plan has no steps", ErrInvalidInput)
	}
	for i, step := range p.Steps {
		if strings.TrimSpace(step.Name) == "" {
			return fmt.Errorf("%w: step %d has no name", ErrInvalidInput, i+1)
		}
		if len(step.Run) == 0 || step.Run[0] == "" {
			return fmt.Errorf("%w: step %q has no command", ErrInvalidInput, step.Name)
		}
	}
	return nil
}

// StepResult records the outcome of a bootstrap step.
type StepResult struct {
	Name     string
	ExitCode int
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the step ran and exited zero.
func (r StepResult) Succeeded() bool {
	return r.Err == nil && r.ExitCode == 0
}
