package handler

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"text/template"

	internalerrors "github.com/qpadgham/archbuild/internal/errors"
	"github.com/qpadgham/archbuild/pkg/docker"
)

const (
	databaseBackupMarker = "BACKUP DATABASE"
	databaseBackupDir    = "/backups"
	saPasswordKey        = "SA_PASSWORD"
)

// Backup filenames are <name>_<YYYYMMDD>_<HHMMSS>.bak.
var (
	bakTimestampRe = regexp.MustCompile(`^(.*)_(\d{8}_\d{6})\.bak$`)
	bakBaseNameRe  = regexp.MustCompile(`^(.*?)_\d{8}_\d{6}\.bak$`)
)

var databaseDockerfile = template.Must(template.New("database").Parse(`FROM {{.ImageName}}:{{.ImageTag}}

{{range .Files}}COPY /{{.Source}} /docker-entrypoint-initdb.d/{{.Target}}
{{end}}USER root
{{range .Files}}RUN chown mssql /docker-entrypoint-initdb.d/{{.Target}}
{{end}}USER mssql
`))

// DatabaseHandler captures a relational database server: it runs the
// in-container backup script once per database, then collects the freshest
// backup file per database from the server's backup directory.
type DatabaseHandler struct {
	base
	databaseNames DatabaseNames
}

func NewDatabaseHandler(ref docker.ContainerRef, deps Deps) Handler {
	env := []string{"ACCEPT_EULA=Y"}
	// The restored server needs the same admin password the source ran with.
	if pw, ok := docker.EnvValue(ref.Env, saPasswordKey); ok {
		env = append(env, fmt.Sprintf("%s=%s", saPasswordKey, pw))
	}
	return &DatabaseHandler{
		base: base{
			ref:    ref,
			engine: deps.Engine,
			log:    deps.Log,
			env:    env,
		},
		databaseNames: deps.DatabaseNames,
	}
}

func (h *DatabaseHandler) PrepareFiles(ctx context.Context) ([]string, error) {
	if h.databaseNames == nil {
		return nil, &internalerrors.ValidationError{Field: "DatabaseNames", Msg: "required for database containers"}
	}
	names, err := h.databaseNames(h.ref.Service)
	if err != nil {
		return nil, err
	}

	for _, db := range names {
		out, err := h.engine.ExecCommand(ctx, h.ref.ID, []string{"sh", "-c", fmt.Sprintf("./backup.sh %s", db)})
		if err != nil {
			return nil, err
		}
		if !strings.Contains(out, databaseBackupMarker) {
			h.log.Errorf("%s", out)
			h.log.Errorf("Backup not created successfully for %s's database %s", h.ref.Service, db)
			return nil, nil
		}
		h.log.Infof("Backup created successfully for %s's database %s", h.ref.Service, db)
	}

	out, err := h.engine.ExecCommand(ctx, h.ref.ID, []string{"sh", "-c", fmt.Sprintf("find %s -type f", databaseBackupDir)})
	if err != nil {
		return nil, err
	}
	var all []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			all = append(all, line)
		}
	}
	return LatestBackupFiles(all), nil
}

// LatestBackupFiles deduplicates timestamped backup filenames, keeping only
// the lexicographically greatest timestamp per base name. Names that do not
// match the backup pattern are dropped.
func LatestBackupFiles(files []string) []string {
	latest := map[string]string{}
	for _, f := range files {
		m := bakTimestampRe.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		name, ts := m[1], m[2]
		if ts > latest[name] {
			latest[name] = ts
		}
	}
	out := make([]string, 0, len(latest))
	for name, ts := range latest {
		out = append(out, fmt.Sprintf("%s_%s.bak", name, ts))
	}
	sort.Strings(out)
	return out
}

func (h *DatabaseHandler) RenderDockerfile(buildDir string) error {
	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return &internalerrors.OperationError{Op: "list build dir", Err: err}
	}

	// The init directory matches backup files to databases by name, so the
	// timestamp suffix has to come off on the way in.
	type bakFile struct{ Source, Target string }
	var files []bakFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m := bakBaseNameRe.FindStringSubmatch(e.Name()); m != nil {
			files = append(files, bakFile{Source: e.Name(), Target: m[1] + ".bak"})
		}
	}

	return h.renderDockerfile(buildDir, databaseDockerfile, struct {
		ImageName string
		ImageTag  string
		Files     []bakFile
	}{h.ref.ImageName, h.ref.ImageTag, files})
}
