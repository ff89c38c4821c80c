package handler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qpadgham/archbuild/pkg/docker"
)

func gatewayRef() docker.ContainerRef {
	return docker.ContainerRef{
		ID:        "abc",
		Name:      "proj-ignition-1",
		Service:   "ignition",
		ImageName: "inductiveautomation/ignition",
		ImageTag:  "8.1.17",
	}
}

func TestGatewayHandler_PrepareFiles(t *testing.T) {
	engine := &fakeEngine{execOutputs: map[string]string{
		gatewayBackupCmd: "gateway backup saved to /usr/local/bin/ignition/data/backup.gwbk",
	}}
	h := NewGatewayHandler(gatewayRef(), testDeps(engine))

	files, err := h.PrepareFiles(context.Background())
	if err != nil {
		t.Fatalf("PrepareFiles: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("expected 4 state files, got %d: %v", len(files), files)
	}
	for _, f := range files {
		if !strings.HasPrefix(f, "/") {
			t.Errorf("expected absolute path, got %q", f)
		}
	}
}

func TestGatewayHandler_PrepareFiles_MissingMarker(t *testing.T) {
	engine := &fakeEngine{execOutputs: map[string]string{
		gatewayBackupCmd: "error: gateway not running",
	}}
	h := NewGatewayHandler(gatewayRef(), testDeps(engine))

	files, err := h.PrepareFiles(context.Background())
	if err != nil {
		t.Fatalf("missing marker must be a soft failure, got error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files after failed backup, got %v", files)
	}
}

func TestGatewayHandler_RenderDockerfile(t *testing.T) {
	dir := t.TempDir()
	h := NewGatewayHandler(gatewayRef(), testDeps(&fakeEngine{}))
	if err := h.RenderDockerfile(dir); err != nil {
		t.Fatalf("RenderDockerfile: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, DockerfileName))
	if err != nil {
		t.Fatalf("dockerfile missing: %v", err)
	}
	content := string(b)
	for _, must := range []string{
		"FROM inductiveautomation/ignition:8.1.17",
		"COPY /backup.gwbk /restore.gwbk",
		"COPY /metro-keystore /usr/local/bin/ignition/data/local/metro-keystore",
		`ENTRYPOINT ["docker-entrypoint.sh", "-r", "/restore.gwbk"]`,
		"USER ignition",
	} {
		if !strings.Contains(content, must) {
			t.Errorf("dockerfile missing %q:\n%s", must, content)
		}
	}
}

func TestGatewayHandler_Environment(t *testing.T) {
	h := NewGatewayHandler(gatewayRef(), testDeps(&fakeEngine{}))
	env := h.Environment()
	if len(env) != 1 || env[0] != "ACCEPT_IGNITION_EULA=Y" {
		t.Fatalf("environment = %v, want [ACCEPT_IGNITION_EULA=Y]", env)
	}
	if h.Deploy() != nil {
		t.Fatalf("gateway handler must not carry a deploy block")
	}
}
