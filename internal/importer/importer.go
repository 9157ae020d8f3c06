// Package importer moves statement files from the import directory through
// the parser and into exported documents.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/bankfeed/internal/config"
)

// FileInfo describes a statement file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns statement files in <repoRoot>/<cfg.Dir>, sorted by name.
// Only files whose extension is listed in cfg.Extensions are returned;
// subdirectories (including the processed dir) are not descended into.
func Scan(repoRoot string, cfg config.ImportConfig) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, cfg.Dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !hasExtension(e.Name(), cfg.Extensions) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// MarkProcessed moves a file from the import dir to the processed dir.
func MarkProcessed(repoRoot string, cfg config.ImportConfig, fileName string) error {
	src := filepath.Join(repoRoot, cfg.Dir, fileName)
	dstDir := filepath.Join(repoRoot, cfg.ProcessedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
