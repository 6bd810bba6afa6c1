package migrations

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

// migrationSet is one embedded directory of numbered .sql files.
type migrationSet struct {
	fsys fs.FS
	dir  string
}

var (
	postgresSet   = migrationSet{fsys: postgresFS, dir: "postgres"}
	clickhouseSet = migrationSet{fsys: clickhouseFS, dir: "clickhouse"}
)

// files lists the .sql files, sorted by name (001_, 002_, ...).
func (m migrationSet) files() ([]string, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (m migrationSet) read(file string) (string, error) {
	data, err := fs.ReadFile(m.fsys, path.Join(m.dir, file))
	return string(data), err
}
