package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"

	internalerrors "github.com/qpadgham/archbuild/internal/errors"
)

const composeProjectLabel = "com.docker.compose.project"

// EngineClient is the subset of the container engine API the build pipeline
// consumes.
type EngineClient interface {
	// ListProjectContainers returns a ContainerRef for every running
	// container labelled with the given compose project.
	ListProjectContainers(ctx context.Context, project string) ([]ContainerRef, error)
	// ExecCommand runs a command inside a container and returns its combined
	// stdout and stderr.
	ExecCommand(ctx context.Context, containerID string, cmd []string) (string, error)
	// CopyFileArchive fetches a single in-container path as a tar stream. The
	// engine always wraps single-file fetches in a one-entry archive.
	CopyFileArchive(ctx context.Context, containerID string, path string) (io.ReadCloser, error)
	// BuildImage builds contextDir and tags the result.
	BuildImage(ctx context.Context, contextDir string, tag string) error
}

type SDKClient struct {
	cli *client.Client
}

func NewSDKClient() (*SDKClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &SDKClient{cli: cli}, nil
}

func (s *SDKClient) ListProjectContainers(ctx context.Context, project string) ([]ContainerRef, error) {
	args := filters.NewArgs(filters.Arg("label", composeProjectLabel+"="+project))
	list, err := s.cli.ContainerList(ctx, container.ListOptions{Filters: args})
	if err != nil {
		return nil, &internalerrors.OperationError{Op: "list project containers", Err: err}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w '%s'", internalerrors.ErrNoContainers, project)
	}

	refs := make([]ContainerRef, 0, len(list))
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			name = c.Names[0][1:]
		}
		inspect, err := s.cli.ContainerInspect(ctx, c.ID)
		if err != nil {
			return nil, &internalerrors.OperationError{Op: fmt.Sprintf("inspect container %s", name), Err: err}
		}
		ref := ContainerRef{
			ID:      c.ID,
			Name:    name,
			Service: ServiceName(name),
		}
		ref.ImageName, ref.ImageTag = SplitImageRef(c.Image)
		if inspect.Config != nil {
			ref.Env = inspect.Config.Env
		}
		if inspect.HostConfig != nil {
			ref.NanoCPUs = inspect.HostConfig.NanoCPUs
		}
		if inspect.NetworkSettings != nil {
			ref.Ports = PortMappings(inspect.NetworkSettings.Ports)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *SDKClient) ExecCommand(ctx context.Context, containerID string, cmd []string) (string, error) {
	exec, err := s.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", &internalerrors.OperationError{Op: "exec create", Err: err}
	}
	resp, err := s.cli.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", &internalerrors.OperationError{Op: "exec attach", Err: err}
	}
	defer resp.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, resp.Reader); err != nil {
		return "", &internalerrors.OperationError{Op: "exec read output", Err: err}
	}
	return out.String(), nil
}

func (s *SDKClient) CopyFileArchive(ctx context.Context, containerID string, path string) (io.ReadCloser, error) {
	rc, _, err := s.cli.CopyFromContainer(ctx, containerID, path)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (s *SDKClient) BuildImage(ctx context.Context, contextDir string, tag string) error {
	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return &internalerrors.OperationError{Op: "create build context", Err: err}
	}
	defer buildCtx.Close()

	resp, err := s.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
	})
	if err != nil {
		return &internalerrors.OperationError{Op: fmt.Sprintf("build image %s", tag), Err: err}
	}
	defer resp.Body.Close()

	// The build runs server-side; failures arrive as error messages on the
	// response stream.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, io.Discard, 0, false, nil); err != nil {
		return &internalerrors.OperationError{Op: fmt.Sprintf("build image %s", tag), Err: err}
	}
	return nil
}
