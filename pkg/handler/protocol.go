package handler

import (
	"context"
	"text/template"

	"github.com/qpadgham/archbuild/pkg/compose"
	"github.com/qpadgham/archbuild/pkg/docker"
)

var protocolDockerfile = template.Must(template.New("protocol").Parse(`FROM {{.ImageName}}:{{.ImageTag}}

COPY /setup.json /setup.json
`))

// ProtocolGatewayHandler captures a protocol gateway. There is no backup
// command to run; its whole state is one configuration file. The source
// container's CPU quota is carried over as a deploy-time limit.
type ProtocolGatewayHandler struct {
	base
}

func NewProtocolGatewayHandler(ref docker.ContainerRef, deps Deps) Handler {
	cpus := FormatCPUs(NanoCPUsToCPUs(ref.NanoCPUs))
	return &ProtocolGatewayHandler{base: base{
		ref:    ref,
		engine: deps.Engine,
		log:    deps.Log,
		deploy: &compose.Deploy{
			Resources: compose.Resources{Limits: compose.Limits{CPUs: cpus}},
		},
	}}
}

func (h *ProtocolGatewayHandler) PrepareFiles(ctx context.Context) ([]string, error) {
	return []string{"/setup.json"}, nil
}

func (h *ProtocolGatewayHandler) RenderDockerfile(buildDir string) error {
	return h.renderDockerfile(buildDir, protocolDockerfile, struct {
		ImageName string
		ImageTag  string
	}{h.ref.ImageName, h.ref.ImageTag})
}
