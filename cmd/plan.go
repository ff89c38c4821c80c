package cmd

import (
	"context"
	"fmt"

	"github.com/qpadgham/archbuild/internal/logger"
	"github.com/qpadgham/archbuild/pkg/build"
	"github.com/qpadgham/archbuild/pkg/filesystem"
	"github.com/qpadgham/archbuild/pkg/handler"
)

type PlanCmd struct {
	log logger.Logger
}

func (c *PlanCmd) Name() string { return "plan" }

func (c *PlanCmd) Help() string {
	return `
Show which containers would be captured for a project, without building.

Usage:
  archbuild plan <project>
`
}

func (c *PlanCmd) Validate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing project label")
	}
	return nil
}

func (c *PlanCmd) Execute(ctx context.Context, args []string) error {
	project := args[0]

	engine, err := newEngineClient()
	if err != nil {
		return err
	}
	mgr := build.NewManager(engine, handler.NewRegistry(), filesystem.NewHandler(), c.log, build.Options{
		Project: project,
	})
	handlers, err := mgr.ResolveHandlers(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Plan for project %s:\n", project)
	for _, h := range handlers {
		ref := h.Container()
		fmt.Printf("  %-20s %s:%s\n", h.ServiceName(), ref.ImageName, ref.ImageTag)
	}
	fmt.Println("Then: compose descriptor, entry shim, umbrella image.")
	return nil
}

func init() {
	RegisterCommand(&PlanCmd{log: logger.New()})
}
