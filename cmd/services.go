package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/qpadgham/archbuild/internal/logger"
	"github.com/qpadgham/archbuild/pkg/compose"
)

type ServicesCmd struct {
	log logger.Logger
}

func (c *ServicesCmd) Name() string { return "services" }

func (c *ServicesCmd) Help() string {
	return `
List the services of a generated compose descriptor in dependency order.

Usage:
  archbuild services <compose_file>
`
}

func (c *ServicesCmd) Validate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing compose file path")
	}
	return nil
}

func (c *ServicesCmd) Execute(ctx context.Context, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	cf, err := compose.Parse(data)
	if err != nil {
		return err
	}
	for _, name := range cf.Order() {
		svc := cf.Services[name]
		fmt.Printf("%-20s %s\n", name, svc.Image)
	}
	return nil
}

func init() {
	RegisterCommand(&ServicesCmd{log: logger.New()})
}
