// Package extract pulls a handler's backup artifacts out of its container
// onto the local filesystem.
package extract

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/docker/docker/errdefs"

	"github.com/qpadgham/archbuild/internal/logger"
	"github.com/qpadgham/archbuild/pkg/archive"
	"github.com/qpadgham/archbuild/pkg/docker"
	"github.com/qpadgham/archbuild/pkg/handler"
)

type Extractor struct {
	engine docker.EngineClient
	log    logger.Logger
}

func New(engine docker.EngineClient, log logger.Logger) *Extractor {
	return &Extractor{engine: engine, log: log}
}

// Extract runs the handler's backup preparation and copies each resulting
// file into destDir: the engine's one-entry archive is written under the
// lowercased basename of the in-container path, then its entry is unpacked
// alongside under the entry's own name. Per-file failures are logged and the
// remaining files still attempted.
func (e *Extractor) Extract(ctx context.Context, h handler.Handler, destDir string) error {
	files, err := h.PrepareFiles(ctx)
	if err != nil {
		return err
	}

	ref := h.Container()
	for _, file := range files {
		rc, err := e.engine.CopyFileArchive(ctx, ref.ID, file)
		if err != nil {
			if errdefs.IsNotFound(err) {
				e.log.Errorf("File %s not found in container %s", file, ref.Name)
			} else {
				e.log.Errorf("Error copying file %s: %v", file, err)
			}
			continue
		}

		outerName := strings.ToLower(path.Base(file))
		outerPath := filepath.Join(destDir, outerName)
		err = archive.WriteStream(rc, outerPath)
		_ = rc.Close()
		if err != nil {
			e.log.Errorf("Error writing %s: %v", outerPath, err)
			continue
		}

		if _, err := archive.ExtractFirstEntry(outerPath, destDir); err != nil {
			e.log.Errorf("Error unpacking %s: %v", outerPath, err)
			continue
		}
		e.log.Infof("Successfully copied %s from %s to %s", outerName, ref.Name, destDir)
	}
	return nil
}
