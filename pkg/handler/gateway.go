package handler

import (
	"context"
	"strings"
	"text/template"

	"github.com/qpadgham/archbuild/pkg/docker"
)

const (
	gatewayBackupCmd    = "/usr/local/bin/ignition/gwcmd.sh -y -b /usr/local/bin/ignition/data/backup.gwbk"
	gatewayBackupMarker = "backup saved"
)

// gatewayStateFiles is the fixed state set a gateway needs to boot as a copy
// of the original: unique id, keystore, replication config, and the backup
// archive itself.
var gatewayStateFiles = []string{
	"/usr/local/bin/ignition/data/redundancy.xml",
	"/usr/local/bin/ignition/data/.uuid",
	"/usr/local/bin/ignition/data/local/metro-keystore",
	"/usr/local/bin/ignition/data/backup.gwbk",
}

var gatewayDockerfile = template.Must(template.New("gateway").Parse(`FROM {{.ImageName}}:{{.ImageTag}}

COPY /.uuid /usr/local/bin/ignition/data/
COPY /metro-keystore /usr/local/bin/ignition/data/local/metro-keystore
COPY /redundancy.xml /usr/local/bin/ignition/data/redundancy.xml
COPY /backup.gwbk /restore.gwbk

USER root
RUN chown -R ignition /usr/local/bin/ignition/data/
RUN chgrp -R ignition /usr/local/bin/ignition/data/

RUN chown -R ignition /restore.gwbk
RUN chgrp -R ignition /restore.gwbk
USER ignition

ENTRYPOINT ["docker-entrypoint.sh", "-r", "/restore.gwbk"]
`))

// GatewayHandler captures an Ignition gateway: it asks the gateway to write a
// backup archive, then copies that archive plus the identity files back out.
type GatewayHandler struct {
	base
}

func NewGatewayHandler(ref docker.ContainerRef, deps Deps) Handler {
	return &GatewayHandler{base: base{
		ref:    ref,
		engine: deps.Engine,
		log:    deps.Log,
		env:    []string{"ACCEPT_IGNITION_EULA=Y"},
	}}
}

func (h *GatewayHandler) PrepareFiles(ctx context.Context) ([]string, error) {
	out, err := h.engine.ExecCommand(ctx, h.ref.ID, []string{"sh", "-c", gatewayBackupCmd})
	if err != nil {
		return nil, err
	}
	if !strings.Contains(out, gatewayBackupMarker) {
		h.log.Errorf("%s", out)
		h.log.Errorf("Backup not created successfully for %s", h.ref.Service)
		return nil, nil
	}
	h.log.Infof("Backup created successfully for %s", h.ref.Service)
	return gatewayStateFiles, nil
}

func (h *GatewayHandler) RenderDockerfile(buildDir string) error {
	return h.renderDockerfile(buildDir, gatewayDockerfile, struct {
		ImageName string
		ImageTag  string
	}{h.ref.ImageName, h.ref.ImageTag})
}
