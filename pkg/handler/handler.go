// Package handler maps supported application images to the strategy that
// knows how to capture their state and rebuild a bootable image from it.
package handler

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	internalerrors "github.com/qpadgham/archbuild/internal/errors"
	"github.com/qpadgham/archbuild/internal/logger"
	"github.com/qpadgham/archbuild/pkg/compose"
	"github.com/qpadgham/archbuild/pkg/docker"
)

// DockerfileName is the rendered build instruction file in each build dir.
const DockerfileName = "Dockerfile"

// DatabaseNames supplies the database list for a database-engine container.
// The CLI wires either a flag-fed map or an interactive prompt; core logic
// never touches the terminal.
type DatabaseNames func(service string) ([]string, error)

// Deps carries the collaborators every handler variant shares.
type Deps struct {
	Engine        docker.EngineClient
	Log           logger.Logger
	DatabaseNames DatabaseNames
}

// Handler encapsulates the per-image backup, file-list, and Dockerfile
// rendering logic for one running container.
type Handler interface {
	// ServiceName is the short compose-style name of the bound container.
	ServiceName() string
	// Container returns the bound container view.
	Container() docker.ContainerRef
	// PrepareFiles triggers any in-container backup commands and returns the
	// absolute paths of the files to retrieve. A backup-command failure is
	// soft: it is logged and the returned list is empty.
	PrepareFiles(ctx context.Context) ([]string, error)
	// RenderDockerfile writes the image-reconstruction Dockerfile to buildDir.
	RenderDockerfile(buildDir string) error

	Ports() []string
	Environment() []string
	Deploy() *compose.Deploy
}

type base struct {
	ref    docker.ContainerRef
	engine docker.EngineClient
	log    logger.Logger
	env    []string
	deploy *compose.Deploy
}

func (b *base) ServiceName() string { return b.ref.Service }

func (b *base) Container() docker.ContainerRef { return b.ref }

func (b *base) Ports() []string { return b.ref.Ports }

func (b *base) Environment() []string { return b.env }

func (b *base) Deploy() *compose.Deploy { return b.deploy }

func (b *base) renderDockerfile(buildDir string, tmpl *template.Template, data any) error {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return &internalerrors.OperationError{Op: "render dockerfile", Err: err}
	}
	path := filepath.Join(buildDir, DockerfileName)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return &internalerrors.OperationError{Op: "write dockerfile", Err: err}
	}
	b.log.Infof("Generated Dockerfile at: %s", path)
	return nil
}

// NanoCPUsToCPUs converts the engine's nanocpu quota to a whole-CPU count.
func NanoCPUsToCPUs(nanoCPUs int64) float64 {
	return float64(nanoCPUs) / 1e9
}

// FormatCPUs renders a CPU count the way compose expects, always keeping a
// decimal point (2 -> "2.0").
func FormatCPUs(cpus float64) string {
	s := strconv.FormatFloat(cpus, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
