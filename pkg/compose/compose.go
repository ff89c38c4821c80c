package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	internalerrors "github.com/qpadgham/archbuild/internal/errors"
)

// FileName is the descriptor name every run emits into its destination folder.
const FileName = "docker-compose.yml"

// File is the generated deployment descriptor.
type File struct {
	Services map[string]Service `yaml:"services"`
}

type Service struct {
	ContainerName string         `yaml:"container_name"`
	Image         string         `yaml:"image"`
	Ports         []string       `yaml:"ports"`
	Environment   []string       `yaml:"environment"`
	Deploy        *Deploy        `yaml:"deploy,omitempty"`
	DependsOn     map[string]any `yaml:"depends_on,omitempty"`
}

// Deploy carries deploy-time resource limits for a service.
type Deploy struct {
	Resources Resources `yaml:"resources"`
}

type Resources struct {
	Limits Limits `yaml:"limits"`
}

type Limits struct {
	CPUs string `yaml:"cpus"`
}

// ServiceSource supplies the per-service fields of the descriptor. Handlers
// satisfy it.
type ServiceSource interface {
	ServiceName() string
	Ports() []string
	Environment() []string
	Deploy() *Deploy
}

// Write aggregates one service entry per source into a compose file under
// destDir. Service name and container name are the source's short name; the
// image is <namespace>/<imageName>:<shortName>. Referenced images are not
// checked for existence.
func Write(namespace, imageName string, sources []ServiceSource, destDir string) (string, error) {
	cf := File{Services: map[string]Service{}}
	for _, src := range sources {
		name := src.ServiceName()
		cf.Services[name] = Service{
			ContainerName: name,
			Image:         fmt.Sprintf("%s/%s:%s", namespace, imageName, name),
			Ports:         src.Ports(),
			Environment:   src.Environment(),
			Deploy:        src.Deploy(),
		}
	}

	data, err := yaml.Marshal(cf)
	if err != nil {
		return "", &internalerrors.OperationError{Op: "marshal compose descriptor", Err: err}
	}
	path := filepath.Join(destDir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &internalerrors.OperationError{Op: "write compose descriptor", Err: err}
	}
	return path, nil
}

// Parse decodes a generated descriptor.
func Parse(data []byte) (File, error) {
	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return File{}, &internalerrors.OperationError{Op: "parse compose descriptor", Err: err}
	}
	return cf, nil
}

// Order returns service names in dependency order (Kahn's algorithm over
// depends_on), falling back to alphabetical when the graph has a cycle or a
// dangling reference. Generated descriptors carry no depends_on, so they come
// back alphabetical.
func (cf File) Order() []string {
	names := make([]string, 0, len(cf.Services))
	for n := range cf.Services {
		names = append(names, n)
	}

	adj := map[string][]string{}
	indeg := map[string]int{}
	for n := range cf.Services {
		indeg[n] = 0
	}
	for n, svc := range cf.Services {
		for dep := range svc.DependsOn {
			adj[dep] = append(adj[dep], n)
			indeg[n]++
		}
	}

	var order []string
	q := []string{}
	for n, d := range indeg {
		if d == 0 {
			q = append(q, n)
		}
	}
	sort.Strings(q)
	for len(q) > 0 {
		cur := q[0]
		q = q[1:]
		order = append(order, cur)
		for _, nb := range adj[cur] {
			indeg[nb]--
			if indeg[nb] == 0 {
				q = append(q, nb)
				sort.Strings(q)
			}
		}
	}
	if len(order) != len(names) {
		order = make([]string, len(names))
		copy(order, names)
		sort.Strings(order)
	}
	return order
}
