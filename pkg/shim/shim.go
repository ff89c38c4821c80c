// Package shim generates the umbrella image's entry script and Dockerfile.
package shim

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"

	internalerrors "github.com/qpadgham/archbuild/internal/errors"
)

const (
	// ScriptName is the entry shim written into the destination folder.
	ScriptName = "entrypoint-shim.sh"
	// AuxComposeFile is the network-capture stack descriptor bundled next to
	// the generated one. It is expected to already exist in the destination
	// folder; this package only references it.
	AuxComposeFile = "docker-compose_WS.yml"
)

var shimScript = template.Must(template.New("shim").Parse(`#!/bin/sh
set -euo pipefail
echo "Starting compose script and normal entry point..."

# start the normal entrypoint in the background
/usr/local/bin/docker-entrypoint.sh "$@" &

# the inner engine takes a moment to come up
while ! docker ps
do
sleep 2
done

docker compose -f /usr/local/bin/{{.ImageName}}/docker-compose.yml up -d

# network capture stack
docker compose -f /usr/local/bin/edgeshark/docker-compose.yml up -d

exit 0
`))

var umbrellaDockerfile = template.Must(template.New("umbrella").Parse(`FROM docker

COPY /docker-compose.yml /usr/local/bin/{{.ImageName}}/docker-compose.yml
RUN chmod +x /usr/local/bin/{{.ImageName}}/docker-compose.yml

COPY /{{.AuxComposeFile}} /usr/local/bin/edgeshark/docker-compose.yml
RUN chmod +x /usr/local/bin/edgeshark/docker-compose.yml

COPY /entrypoint-shim.sh /usr/local/bin/entrypoint-shim.sh
RUN chmod +x /usr/local/bin/entrypoint-shim.sh

ENTRYPOINT [ "/usr/local/bin/entrypoint-shim.sh" ]
`))

// WriteScript emits the POSIX entry shim for the umbrella image: it launches
// the base image's original entrypoint in the background, waits for the inner
// engine, then brings up the generated stack and the capture stack.
func WriteScript(imageName string, destDir string) (string, error) {
	var sb strings.Builder
	if err := shimScript.Execute(&sb, struct{ ImageName string }{imageName}); err != nil {
		return "", &internalerrors.OperationError{Op: "render shim script", Err: err}
	}
	path := filepath.Join(destDir, ScriptName)
	if err := os.WriteFile(path, []byte(sb.String()), 0o755); err != nil {
		return "", &internalerrors.OperationError{Op: "write shim script", Err: err}
	}
	return path, nil
}

// WriteUmbrellaDockerfile emits the outer image's Dockerfile, bundling the
// compose descriptor, the auxiliary descriptor, and the shim as entrypoint.
func WriteUmbrellaDockerfile(imageName string, destDir string) (string, error) {
	var sb strings.Builder
	data := struct{ ImageName, AuxComposeFile string }{imageName, AuxComposeFile}
	if err := umbrellaDockerfile.Execute(&sb, data); err != nil {
		return "", &internalerrors.OperationError{Op: "render umbrella dockerfile", Err: err}
	}
	path := filepath.Join(destDir, "Dockerfile")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", &internalerrors.OperationError{Op: "write umbrella dockerfile", Err: err}
	}
	return path, nil
}
