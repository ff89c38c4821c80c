package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qpadgham/archbuild/internal/logger"
	"github.com/qpadgham/archbuild/pkg/compose"
	"github.com/qpadgham/archbuild/pkg/handler"
	"github.com/qpadgham/archbuild/pkg/shim"
)

type ValidateCmd struct {
	log logger.Logger
}

func (c *ValidateCmd) Name() string { return "validate" }

func (c *ValidateCmd) Help() string {
	return `
Check a previous run's output folder: descriptor, shim, per-service build dirs.

Usage:
  archbuild validate <output_dir>
`
}

func (c *ValidateCmd) Validate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing output directory")
	}
	return nil
}

func (c *ValidateCmd) Execute(ctx context.Context, args []string) error {
	dir := args[0]

	data, err := os.ReadFile(filepath.Join(dir, compose.FileName))
	if err != nil {
		return fmt.Errorf("compose descriptor missing: %w", err)
	}
	cf, err := compose.Parse(data)
	if err != nil {
		return err
	}

	missing := 0
	for name := range cf.Services {
		dockerfile := filepath.Join(dir, name, handler.DockerfileName)
		if _, err := os.Stat(dockerfile); err != nil {
			fmt.Printf("service %s: missing %s\n", name, dockerfile)
			missing++
		}
	}
	if _, err := os.Stat(filepath.Join(dir, shim.ScriptName)); err != nil {
		fmt.Printf("missing shim script %s\n", shim.ScriptName)
		missing++
	}
	if missing > 0 {
		return fmt.Errorf("output folder is incomplete: %d problem(s)", missing)
	}
	fmt.Printf("output folder is valid: %d service(s)\n", len(cf.Services))
	return nil
}

func init() {
	RegisterCommand(&ValidateCmd{log: logger.New()})
}
