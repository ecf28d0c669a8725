package devenv

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

type composeFile struct {
	Services map[string]composeService  `yaml:"services"`
	Networks map[string]*composeNetwork `yaml:"networks"`
}

type composeNetwork struct {
	Driver string `yaml:"driver"`
}

type composeService struct {
	Image     string        `yaml:"image"`
	Build     composeBuild  `yaml:"build"`
	Command   stringList    `yaml:"command"`
	Volumes   []volumeEntry `yaml:"volumes"`
	Ports     []portEntry   `yaml:"ports"`
	Networks  nameList      `yaml:"networks"`
	DependsOn nameList      `yaml:"depends_on"`
}

// composeBuild is either a context path or {context: path, ...}.
type composeBuild string

func (b *composeBuild) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*b = composeBuild(node.Value)
		return nil
	}
	var long struct {
		Context string `yaml:"context"`
	}
	if err := node.Decode(&long); err != nil {
		return err
	}
	*b = composeBuild(long.Context)
	return nil
}

type volumeEntry domain.VolumeMount

// UnmarshalYAML parses "source:target[:mode]", a bare target, or the long
// {type, source, target, read_only} form.
func (v *volumeEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parts := strings.Split(node.Value, ":")
		switch len(parts) {
		case 1:
			*v = volumeEntry{Target: parts[0]}
		case 2:
			*v = volumeEntry{Source: parts[0], Target: parts[1]}
		case 3:
			*v = volumeEntry{Source: parts[0], Target: parts[1], Mode: parts[2]}
		default:
			return fmt.Errorf("line %d: invalid volume %q", node.Line, node.Value)
		}
		return nil
	}

	var long struct {
		Source   string `yaml:"source"`
		Target   string `yaml:"target"`
		ReadOnly bool   `yaml:"read_only"`
	}
	if err := node.Decode(&long); err != nil {
		return err
	}
	*v = volumeEntry{Source: long.Source, Target: long.Target}
	if long.ReadOnly {
		v.Mode = "ro"
	}
	return nil
}

type portEntry domain.PortMapping

// UnmarshalYAML parses "[ip:][host:]container[/proto]", a bare number, or
// the long {target, published, host_ip, protocol} form.
func (p *portEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := parseShortPort(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*p = parsed
		return nil
	}

	var long struct {
		Target    string `yaml:"target"`
		Published string `yaml:"published"`
		HostIP    string `yaml:"host_ip"`
		Protocol  string `yaml:"protocol"`
	}
	if err := node.Decode(&long); err != nil {
		return err
	}
	container, err := parsePort(long.Target)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = portEntry{HostIP: long.HostIP, Container: container, Protocol: long.Protocol}
	if long.Published != "" {
		if p.Host, err = parsePort(long.Published); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
	}
	return nil
}

func parseShortPort(spec string) (portEntry, error) {
	var out portEntry
	if i := strings.LastIndex(spec, "/"); i >= 0 {
		out.Protocol = spec[i+1:]
		spec = spec[:i]
	}

	parts := strings.Split(spec, ":")
	var err error
	switch len(parts) {
	case 1:
		out.Container, err = parsePort(parts[0])
	case 2:
		if out.Host, err = parsePort(parts[0]); err == nil {
			out.Container, err = parsePort(parts[1])
		}
	case 3:
		out.HostIP = parts[0]
		if out.Host, err = parsePort(parts[1]); err == nil {
			out.Container, err = parsePort(parts[2])
		}
	default:
		err = fmt.Errorf("invalid port %q", spec)
	}
	return out, err
}

// parsePort reads a port number. For a range only its first port is kept.
func parsePort(s string) (int, error) {
	if i := strings.Index(s, "-"); i > 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return n, nil
}

func (f composeFile) toDescriptor(path string) *domain.Descriptor {
	desc := &domain.Descriptor{
		Path:     path,
		Services: make(map[string]domain.ServiceSpec, len(f.Services)),
		Networks: make(map[string]domain.NetworkSpec, len(f.Networks)),
	}
	for name, svc := range f.Services {
		spec := domain.ServiceSpec{
			Image:     svc.Image,
			Build:     string(svc.Build),
			Command:   svc.Command,
			Networks:  svc.Networks,
			DependsOn: svc.DependsOn,
		}
		for _, v := range svc.Volumes {
			spec.Volumes = append(spec.Volumes, domain.VolumeMount(v))
		}
		for _, p := range svc.Ports {
			spec.Ports = append(spec.Ports, domain.PortMapping(p))
		}
		desc.Services[name] = spec
	}
	for name, network := range f.Networks {
		var spec domain.NetworkSpec
		if network != nil {
			spec.Driver = network.Driver
		}
		desc.Networks[name] = spec
	}
	return desc
}
