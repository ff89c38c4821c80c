package handler

import (
	internalerrors "github.com/qpadgham/archbuild/internal/errors"
	"github.com/qpadgham/archbuild/pkg/docker"
)

// Base image names with registered handlers. The set is closed: anything else
// is skipped with a HandlerNotFoundError.
const (
	GatewayImage         = "inductiveautomation/ignition"
	DatabaseImage        = "kcollins/mssql"
	ProtocolGatewayImage = "qpadgham/mymodbus"
)

// Constructor builds a handler variant bound to one container.
type Constructor func(ref docker.ContainerRef, deps Deps) Handler

// Registry maps a container's base image name to the handler variant
// responsible for it.
type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{
		GatewayImage:         NewGatewayHandler,
		DatabaseImage:        NewDatabaseHandler,
		ProtocolGatewayImage: NewProtocolGatewayHandler,
	}}
}

// Register adds or replaces a variant for a base image name.
func (r *Registry) Register(image string, c Constructor) {
	r.constructors[image] = c
}

// Resolve returns a handler bound to the container, or a
// HandlerNotFoundError carrying the unregistered image name.
func (r *Registry) Resolve(ref docker.ContainerRef, deps Deps) (Handler, error) {
	c, ok := r.constructors[ref.ImageName]
	if !ok {
		return nil, &internalerrors.HandlerNotFoundError{Image: ref.ImageName}
	}
	return c(ref, deps), nil
}
