package docker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/docker/go-connections/nat"
)

// ContainerRef is a read-only view onto one running container for the
// duration of a build run.
type ContainerRef struct {
	ID        string
	Name      string
	Service   string
	ImageName string
	ImageTag  string
	Env       []string
	NanoCPUs  int64
	Ports     []string
}

// Compose-managed containers are named <project>-<service>-<replica>.
var serviceNameRe = regexp.MustCompile(`^[^-]+-([^-]+)-\d+$`)

// ServiceName derives the short service name from an engine container name.
// Names that do not follow the compose pattern fall back to the full name.
func ServiceName(containerName string) string {
	name := strings.TrimPrefix(containerName, "/")
	if m := serviceNameRe.FindStringSubmatch(name); m != nil {
		return strings.ToLower(m[1])
	}
	return strings.ToLower(name)
}

// SplitImageRef splits an image reference into name and tag. A reference
// without a tag gets "latest".
func SplitImageRef(ref string) (name, tag string) {
	idx := strings.LastIndex(ref, ":")
	if idx < 0 || strings.Contains(ref[idx+1:], "/") {
		return ref, "latest"
	}
	return ref[:idx], ref[idx+1:]
}

// PortMappings flattens an engine port map into "hostPort:containerPort"
// strings, keeping the protocol suffix for non-TCP ports. Unpublished ports
// are dropped.
func PortMappings(ports nat.PortMap) []string {
	var mappings []string
	for port, bindings := range ports {
		if len(bindings) == 0 {
			continue
		}
		spec := bindings[0].HostPort + ":" + port.Port()
		if port.Proto() != "tcp" {
			spec += "/" + port.Proto()
		}
		mappings = append(mappings, spec)
	}
	sort.Strings(mappings)
	return mappings
}

// EnvValue looks up a KEY=VALUE assignment in a container environment list.
func EnvValue(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}
