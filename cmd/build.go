package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/qpadgham/archbuild/internal/logger"
	"github.com/qpadgham/archbuild/pkg/build"
	"github.com/qpadgham/archbuild/pkg/filesystem"
	"github.com/qpadgham/archbuild/pkg/handler"
)

type BuildCmd struct {
	log logger.Logger
}

func (c *BuildCmd) Name() string { return "build" }

func (c *BuildCmd) Help() string {
	return `
Capture state from a running compose project and repackage it as images.

Usage:
  archbuild build <project> <image_name> [options]

Options:
  -o, --output string        Destination folder (default: current directory)
      --namespace string     Registry namespace for image references (default: local)
      --databases svc=a,b    Database names per service (repeatable); services
                             without an entry are prompted for interactively
      --aux-compose string   Path to the capture-stack compose file to bundle
`
}

func (c *BuildCmd) Validate(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing project label and image name")
	}
	return nil
}

func (c *BuildCmd) Execute(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet(c.Name(), pflag.ContinueOnError)
	var output string
	var namespace string
	var databases []string
	var auxCompose string
	fs.StringVarP(&output, "output", "o", "", "Destination folder")
	fs.StringVar(&namespace, "namespace", "local", "Registry namespace for image references")
	fs.StringArrayVar(&databases, "databases", nil, "Database names per service, svc=a,b (repeatable)")
	fs.StringVar(&auxCompose, "aux-compose", "", "Path to the capture-stack compose file to bundle")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) < 2 {
		return fmt.Errorf("missing project label and image name")
	}
	project, imageName := remaining[0], remaining[1]

	if output == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		output = cwd
	}

	overrides, err := parseDatabaseOverrides(databases)
	if err != nil {
		return err
	}

	engine, err := newEngineClient()
	if err != nil {
		return err
	}
	mgr := build.NewManager(engine, handler.NewRegistry(), filesystem.NewHandler(), c.log, build.Options{
		Project:        project,
		ImageName:      imageName,
		Namespace:      namespace,
		OutputDir:      output,
		AuxComposePath: auxCompose,
		DatabaseNames:  databaseNamesProvider(overrides),
	})
	return mgr.Run(ctx)
}

func parseDatabaseOverrides(entries []string) (map[string][]string, error) {
	overrides := map[string][]string{}
	for _, entry := range entries {
		svc, list, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --databases entry %q, expected svc=db1,db2", entry)
		}
		overrides[svc] = splitAndTrim(list)
	}
	return overrides, nil
}

// databaseNamesProvider answers from the flag-fed map first and falls back to
// a terminal prompt, keeping the interactive step out of the core packages.
func databaseNamesProvider(overrides map[string][]string) handler.DatabaseNames {
	return func(service string) ([]string, error) {
		if dbs, ok := overrides[service]; ok {
			return dbs, nil
		}
		fmt.Printf("Please enter a comma-separated list of database names for container %s: ", service)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return nil, err
		}
		return splitAndTrim(line), nil
	}
}

func splitAndTrim(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func init() {
	RegisterCommand(&BuildCmd{log: logger.New()})
}
