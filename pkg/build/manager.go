// Package build sequences the whole capture-and-repackage run for one
// compose project.
package build

import (
	"context"
	"fmt"
	"path/filepath"

	internalerrors "github.com/qpadgham/archbuild/internal/errors"
	"github.com/qpadgham/archbuild/internal/logger"
	"github.com/qpadgham/archbuild/pkg/compose"
	"github.com/qpadgham/archbuild/pkg/docker"
	"github.com/qpadgham/archbuild/pkg/extract"
	"github.com/qpadgham/archbuild/pkg/filesystem"
	"github.com/qpadgham/archbuild/pkg/handler"
	"github.com/qpadgham/archbuild/pkg/shim"
)

// UmbrellaTag is the tag of the outer image bundling the generated stack.
const UmbrellaTag = "build"

type Options struct {
	// Project is the compose project label to discover containers by.
	Project string
	// ImageName names every derived image; per-container images are
	// distinguished by tag (the service name) and the umbrella by "build".
	ImageName string
	// Namespace is the registry namespace prefixed to every image reference.
	Namespace string
	// OutputDir is the destination folder; per-service build dirs are
	// created underneath it.
	OutputDir string
	// AuxComposePath, when set, is copied into OutputDir as the auxiliary
	// capture-stack descriptor the umbrella image bundles.
	AuxComposePath string
	// DatabaseNames supplies database lists for database-engine containers.
	DatabaseNames handler.DatabaseNames
}

// Manager runs the pipeline: discover, resolve, extract, render, build per
// container, then descriptor, shim, and umbrella image. Every per-container
// failure is soft; only an empty discovery aborts the run.
type Manager struct {
	engine    docker.EngineClient
	registry  *handler.Registry
	extractor *extract.Extractor
	fs        filesystem.Handler
	log       logger.Logger
	opts      Options
}

func NewManager(engine docker.EngineClient, registry *handler.Registry, fs filesystem.Handler, log logger.Logger, opts Options) *Manager {
	return &Manager{
		engine:    engine,
		registry:  registry,
		extractor: extract.New(engine, log),
		fs:        fs,
		log:       log,
		opts:      opts,
	}
}

// ResolveHandlers discovers the project's running containers and binds a
// handler to each. Containers without a registered handler are logged and
// skipped; no containers at all is the run's only fatal error.
func (m *Manager) ResolveHandlers(ctx context.Context) ([]handler.Handler, error) {
	refs, err := m.engine.ListProjectContainers(ctx, m.opts.Project)
	if err != nil {
		return nil, err
	}
	deps := handler.Deps{
		Engine:        m.engine,
		Log:           m.log,
		DatabaseNames: m.opts.DatabaseNames,
	}
	var handlers []handler.Handler
	for _, ref := range refs {
		h, err := m.registry.Resolve(ref, deps)
		if err != nil {
			m.log.Errorf("No handler found for %s, skipping. Error: %v", ref.Name, err)
			continue
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

// Run executes the full pipeline.
func (m *Manager) Run(ctx context.Context) error {
	handlers, err := m.ResolveHandlers(ctx)
	if err != nil {
		return err
	}

	for _, h := range handlers {
		m.createDerivedImage(ctx, h)
	}

	sources := make([]compose.ServiceSource, 0, len(handlers))
	for _, h := range handlers {
		sources = append(sources, h)
	}
	composePath, err := compose.Write(m.opts.Namespace, m.opts.ImageName, sources, m.opts.OutputDir)
	if err != nil {
		return err
	}
	m.log.Infof("Generated %s at: %s", compose.FileName, composePath)

	shimPath, err := shim.WriteScript(m.opts.ImageName, m.opts.OutputDir)
	if err != nil {
		return err
	}
	m.log.Infof("Generated shim at: %s", shimPath)

	return m.createUmbrellaImage(ctx)
}

// createDerivedImage captures one container's state and builds its image.
// Extraction, rendering, and build failures are logged and leave the rest of
// the batch running.
func (m *Manager) createDerivedImage(ctx context.Context, h handler.Handler) {
	log := m.log.With("service", h.ServiceName())

	buildDir := filepath.Join(m.opts.OutputDir, h.ServiceName())
	if err := m.fs.EnsureDir(buildDir, 0o755); err != nil {
		log.Errorf("create build dir: %v", err)
		return
	}
	if err := m.extractor.Extract(ctx, h, buildDir); err != nil {
		log.Errorf("extract resources: %v", err)
	}
	if err := h.RenderDockerfile(buildDir); err != nil {
		log.Errorf("render dockerfile: %v", err)
		return
	}
	tag := fmt.Sprintf("%s/%s:%s", m.opts.Namespace, m.opts.ImageName, h.ServiceName())
	log.Infof("Building image from build dir: %s", buildDir)
	if err := m.engine.BuildImage(ctx, buildDir, tag); err != nil {
		log.Errorf("build image: %v", err)
		return
	}
	log.Infof("Successfully built image: %s", tag)
}

func (m *Manager) createUmbrellaImage(ctx context.Context) error {
	if m.opts.AuxComposePath != "" {
		dest := filepath.Join(m.opts.OutputDir, shim.AuxComposeFile)
		if err := m.fs.CopyFile(m.opts.AuxComposePath, dest, 0o644); err != nil {
			return &internalerrors.OperationError{Op: "copy aux compose file", Err: err}
		}
	} else if !m.fs.FileExists(filepath.Join(m.opts.OutputDir, shim.AuxComposeFile)) {
		m.log.Errorf("%s not present in %s; the umbrella build will fail to COPY it", shim.AuxComposeFile, m.opts.OutputDir)
	}

	if _, err := shim.WriteUmbrellaDockerfile(m.opts.ImageName, m.opts.OutputDir); err != nil {
		return err
	}
	tag := fmt.Sprintf("%s/%s:%s", m.opts.Namespace, m.opts.ImageName, UmbrellaTag)
	m.log.Infof("Building umbrella image from: %s", m.opts.OutputDir)
	if err := m.engine.BuildImage(ctx, m.opts.OutputDir, tag); err != nil {
		m.log.Errorf("build umbrella image: %v", err)
		return nil
	}
	m.log.Infof("Successfully built image: %s", tag)
	return nil
}
