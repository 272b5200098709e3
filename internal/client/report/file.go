package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/moodkeeper/internal/filex"
)

// FileExporter writes report-<unix>.json files into Dir.
type FileExporter struct {
	Dir string
}

func (e FileExporter) Export(_ context.Context, r Report) (string, error) {
	dir, err := filex.EnsureDir(e.Dir)
	if err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}

	data, err := r.Marshal()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("report-%d.json", r.GeneratedAt.Unix()))
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
