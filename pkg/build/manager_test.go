package build

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/errdefs"

	internalerrors "github.com/qpadgham/archbuild/internal/errors"
	"github.com/qpadgham/archbuild/internal/logger"
	"github.com/qpadgham/archbuild/pkg/compose"
	"github.com/qpadgham/archbuild/pkg/docker"
	"github.com/qpadgham/archbuild/pkg/filesystem"
	"github.com/qpadgham/archbuild/pkg/handler"
)

const gatewayBackupCmd = "/usr/local/bin/ignition/gwcmd.sh -y -b /usr/local/bin/ignition/data/backup.gwbk"

type fakeEngine struct {
	refs        []docker.ContainerRef
	execOutputs map[string]string
	files       map[string]string
	builtTags   []string
}

func (f *fakeEngine) ListProjectContainers(ctx context.Context, project string) ([]docker.ContainerRef, error) {
	if len(f.refs) == 0 {
		return nil, fmt.Errorf("%w '%s'", internalerrors.ErrNoContainers, project)
	}
	return f.refs, nil
}

func (f *fakeEngine) ExecCommand(ctx context.Context, containerID string, cmd []string) (string, error) {
	return f.execOutputs[cmd[len(cmd)-1]], nil
}

func (f *fakeEngine) CopyFileArchive(ctx context.Context, containerID string, path string) (io.ReadCloser, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, errdefs.NotFound(errors.New("no such file: " + path))
	}
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	_ = tw.WriteHeader(&tar.Header{Name: filepath.Base(path), Mode: 0o644, Size: int64(len(content))})
	_, _ = tw.Write([]byte(content))
	_ = tw.Close()
	return io.NopCloser(&buf), nil
}

func (f *fakeEngine) BuildImage(ctx context.Context, contextDir string, tag string) error {
	f.builtTags = append(f.builtTags, tag)
	return nil
}

func projectRefs() []docker.ContainerRef {
	return []docker.ContainerRef{
		{
			ID:        "c1",
			Name:      "proj-ignition-1",
			Service:   "ignition",
			ImageName: "inductiveautomation/ignition",
			ImageTag:  "8.1.17",
			Ports:     []string{"8088:8088"},
		},
		{
			ID:        "c2",
			Name:      "proj-modbus-1",
			Service:   "modbus",
			ImageName: "qpadgham/mymodbus",
			ImageTag:  "1.2",
			NanoCPUs:  2_000_000_000,
		},
		{
			ID:        "c3",
			Name:      "proj-cache-1",
			Service:   "cache",
			ImageName: "library/redis",
			ImageTag:  "7",
		},
	}
}

func newTestManager(engine *fakeEngine, outDir string) *Manager {
	return NewManager(engine, handler.NewRegistry(), filesystem.NewHandler(), logger.New(), Options{
		Project:   "proj",
		ImageName: "edge",
		Namespace: "local",
		OutputDir: outDir,
	})
}

func TestManager_Run(t *testing.T) {
	outDir := t.TempDir()
	engine := &fakeEngine{
		refs: projectRefs(),
		execOutputs: map[string]string{
			gatewayBackupCmd: "backup saved",
		},
		files: map[string]string{
			"/usr/local/bin/ignition/data/redundancy.xml":       "<xml/>",
			"/usr/local/bin/ignition/data/.uuid":                "1111",
			"/usr/local/bin/ignition/data/local/metro-keystore": "ks",
			"/usr/local/bin/ignition/data/backup.gwbk":          "gwbk",
			"/setup.json":                                       "{}",
		},
	}
	// The aux compose file is expected to pre-exist in the output folder.
	if err := os.WriteFile(filepath.Join(outDir, "docker-compose_WS.yml"), []byte("services: {}\n"), 0o644); err != nil {
		t.Fatalf("write aux compose: %v", err)
	}

	if err := newTestManager(engine, outDir).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One build dir per resolved handler, the unknown image skipped.
	for _, svc := range []string{"ignition", "modbus"} {
		if _, err := os.Stat(filepath.Join(outDir, svc, handler.DockerfileName)); err != nil {
			t.Errorf("missing dockerfile for %s: %v", svc, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "cache")); err == nil {
		t.Errorf("unresolvable container must not get a build dir")
	}

	// Extracted artifacts landed in the gateway's build dir.
	if _, err := os.Stat(filepath.Join(outDir, "ignition", "backup.gwbk")); err != nil {
		t.Errorf("gateway backup not extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "modbus", "setup.json")); err != nil {
		t.Errorf("setup.json not extracted: %v", err)
	}

	// Descriptor with exactly the two resolved services.
	data, err := os.ReadFile(filepath.Join(outDir, compose.FileName))
	if err != nil {
		t.Fatalf("compose descriptor missing: %v", err)
	}
	cf, err := compose.Parse(data)
	if err != nil {
		t.Fatalf("parse descriptor: %v", err)
	}
	if len(cf.Services) != 2 {
		t.Fatalf("expected 2 services, got %v", cf.Services)
	}
	if cf.Services["ignition"].Image != "local/edge:ignition" {
		t.Errorf("ignition image = %q", cf.Services["ignition"].Image)
	}
	if cf.Services["modbus"].Deploy == nil || cf.Services["modbus"].Deploy.Resources.Limits.CPUs != "2.0" {
		t.Errorf("modbus deploy = %+v", cf.Services["modbus"].Deploy)
	}

	// Shim references the output image name.
	shimData, err := os.ReadFile(filepath.Join(outDir, "entrypoint-shim.sh"))
	if err != nil {
		t.Fatalf("shim missing: %v", err)
	}
	if !bytes.Contains(shimData, []byte("/usr/local/bin/edge/docker-compose.yml")) {
		t.Errorf("shim does not reference the image name:\n%s", shimData)
	}

	// Two derived builds plus the umbrella build.
	wantTags := []string{"local/edge:ignition", "local/edge:modbus", "local/edge:build"}
	if len(engine.builtTags) != len(wantTags) {
		t.Fatalf("built tags = %v, want %v", engine.builtTags, wantTags)
	}
	for i, tag := range wantTags {
		if engine.builtTags[i] != tag {
			t.Errorf("built tag[%d] = %q, want %q", i, engine.builtTags[i], tag)
		}
	}
}

func TestManager_Run_BackupMarkerMissing(t *testing.T) {
	outDir := t.TempDir()
	engine := &fakeEngine{
		refs: projectRefs()[:2],
		execOutputs: map[string]string{
			gatewayBackupCmd: "gateway unreachable",
		},
		files: map[string]string{"/setup.json": "{}"},
	}

	if err := newTestManager(engine, outDir).Run(context.Background()); err != nil {
		t.Fatalf("a failed backup must not abort the run: %v", err)
	}

	// The gateway build dir holds only the Dockerfile; its copy targets stay
	// unresolved.
	entries, err := os.ReadDir(filepath.Join(outDir, "ignition"))
	if err != nil {
		t.Fatalf("gateway build dir missing: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != handler.DockerfileName {
		t.Fatalf("expected only a Dockerfile, got %v", entries)
	}

	data, _ := os.ReadFile(filepath.Join(outDir, compose.FileName))
	cf, err := compose.Parse(data)
	if err != nil {
		t.Fatalf("parse descriptor: %v", err)
	}
	if len(cf.Services) != 2 {
		t.Fatalf("both services still belong in the descriptor, got %v", cf.Services)
	}
}

func TestManager_Run_NoContainers(t *testing.T) {
	engine := &fakeEngine{}
	err := newTestManager(engine, t.TempDir()).Run(context.Background())
	if err == nil {
		t.Fatalf("expected fatal error when no containers match")
	}
	if !errors.Is(err, internalerrors.ErrNoContainers) {
		t.Fatalf("expected ErrNoContainers, got %v", err)
	}
	if len(engine.builtTags) != 0 {
		t.Fatalf("nothing must be built: %v", engine.builtTags)
	}
}
