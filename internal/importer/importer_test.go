package importer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankfeed/internal/config"
	"github.com/cleared-dev/bankfeed/internal/export"
	"github.com/cleared-dev/bankfeed/internal/gitops"
	"github.com/cleared-dev/bankfeed/internal/importlog"
	"github.com/cleared-dev/bankfeed/internal/logger"
	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

func copyFixture(t *testing.T, repo, fixture, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("../../testdata", fixture))
	require.NoError(t, err)
	dir := filepath.Join(repo, "import")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Git.AutoCommit = false
	return cfg
}

func TestScan_FindsStatementFiles(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))

	for _, name := range []string{"b.BAI2", "a.sta", "c.xml", "notes.txt", ".gitkeep"} {
		require.NoError(t, os.WriteFile(filepath.Join(importDir, name), []byte("data"), 0o644))
	}

	files, err := Scan(dir, config.Default().Import)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.sta", files[0].Name)
	assert.Equal(t, "b.BAI2", files[1].Name)
	assert.Equal(t, "c.xml", files[2].Name)
	assert.EqualValues(t, 4, files[0].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	processedDir := filepath.Join(importDir, "processed")
	require.NoError(t, os.MkdirAll(processedDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "new.bai2"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processedDir, "old.bai2"), []byte("data"), 0o644))

	files, err := Scan(dir, config.Default().Import)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "new.bai2", files[0].Name)
}

func TestScan_EmptyDir(t *testing.T) {
	files, err := Scan(t.TempDir(), config.Default().Import)
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "sample.bai2", "bank.bai2")

	require.NoError(t, MarkProcessed(dir, config.Default().Import, "bank.bai2"))

	_, err := os.Stat(filepath.Join(dir, "import", "bank.bai2"))
	assert.True(t, os.IsNotExist(err))

	info, err := os.Stat(filepath.Join(dir, "import", "processed", "bank.bai2"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestImportFile(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "multi_account.bai2", "march.bai2")
	cfg := testConfig()
	cfg.Parse.ValidateBalances = true

	svc, err := NewService(dir, cfg, "", logger.NewNop())
	require.NoError(t, err)

	files, err := Scan(dir, cfg.Import)
	require.NoError(t, err)
	require.Len(t, files, 1)

	res, err := svc.ImportFile(context.Background(), files[0])
	require.NoError(t, err)
	assert.Equal(t, model.FormatBAI2, res.Format)
	assert.Equal(t, 2, res.Statements)
	assert.Equal(t, 3, res.Transactions)
	assert.Equal(t, 0, res.Diagnostics)
	assert.Empty(t, res.Validation)
	assert.Equal(t, "statements/march.bai2.json", res.Output)

	data, err := os.ReadFile(filepath.Join(dir, res.Output))
	require.NoError(t, err)
	var doc export.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Statements, 2)
	assert.Equal(t, "1111111111", doc.Statements[0].AccountNumber)

	// Source stays until MarkProcessed.
	_, err = os.Stat(files[0].Path)
	assert.NoError(t, err)
}

func TestImportFile_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "import"), 0o755))
	path := filepath.Join(dir, "import", "junk.xml")
	require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0o644))

	svc, err := NewService(dir, testConfig(), "", logger.NewNop())
	require.NoError(t, err)

	_, err = svc.ImportFile(context.Background(), FileInfo{Name: "junk.xml", Path: path})
	var fe *statement.FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestNewService_BadOutputFormat(t *testing.T) {
	_, err := NewService(t.TempDir(), testConfig(), "pdf", logger.NewNop())
	assert.ErrorContains(t, err, "unknown output format")

	cfg := testConfig()
	cfg.Parse.DefaultFormat = "ofx"
	_, err = NewService(t.TempDir(), cfg, "", logger.NewNop())
	assert.ErrorContains(t, err, "parse.default_format")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "sample.bai2", "a.bai2")
	copyFixture(t, dir, "sample.mt940", "b.sta")
	copyFixture(t, dir, "sample_camt053.xml", "c.xml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "d.xml"), []byte("<html/>"), 0o644))

	svc, err := NewService(dir, testConfig(), "csv", logger.NewNop())
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, summary.ImportID)
	require.Len(t, summary.Imported, 3)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "d.xml", summary.Skipped[0].Name)
	assert.Empty(t, summary.Commit)

	assert.Equal(t, model.FormatBAI2, summary.Imported[0].Format)
	assert.Equal(t, model.FormatMT940, summary.Imported[1].Format)
	assert.Equal(t, model.FormatCAMT053, summary.Imported[2].Format)

	for _, name := range []string{"a.bai2", "b.sta", "c.xml"} {
		_, err := os.Stat(filepath.Join(dir, "import", "processed", name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(dir, "import", "d.xml"))
	assert.NoError(t, err, "skipped file stays in the import dir")

	_, err = os.Stat(filepath.Join(dir, "statements", "b.sta.csv"))
	assert.NoError(t, err)

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, summary.ImportID, entries[0].ImportID)
	assert.Equal(t, "MT940", entries[1].Format)
	assert.Equal(t, 2, entries[1].Transactions)
	assert.Equal(t, "statements/c.xml.csv", entries[2].Output)
}

func TestRun_SameBaseName(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "sample.bai2", "jan.bai2")
	copyFixture(t, dir, "sample.mt940", "jan.mt940")

	svc, err := NewService(dir, testConfig(), "", logger.NewNop())
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Imported, 2)
	assert.Equal(t, "statements/jan.bai2.json", summary.Imported[0].Output)
	assert.Equal(t, "statements/jan.mt940.json", summary.Imported[1].Output)

	for _, r := range summary.Imported {
		data, err := os.ReadFile(filepath.Join(dir, r.Output))
		require.NoError(t, err)
		var doc export.Document
		require.NoError(t, json.Unmarshal(data, &doc))
		require.Len(t, doc.Statements, 1)
		assert.Equal(t, string(r.Format), doc.Statements[0].Format)
	}
}

func TestRun_LaterFileFails(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "sample.bai2", "a.bai2")
	copyFixture(t, dir, "sample.mt940", "b.sta")
	// A directory where b's export would go makes its write fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "statements", "b.sta.json"), 0o755))

	svc, err := NewService(dir, testConfig(), "", logger.NewNop())
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importing b.sta")
	require.Len(t, summary.Imported, 1)
	assert.Equal(t, "a.bai2", summary.Imported[0].File.Name)

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "a.bai2"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "import", "b.sta"))
	assert.NoError(t, err, "failed file stays in the import dir")

	entries, err := importlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.bai2", entries[0].File)
	assert.Equal(t, "statements/a.bai2.json", entries[0].Output)
}

func TestRun_LaterFileFailsStillCommits(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	require.NoError(t, gitops.Init(dir))
	copyFixture(t, dir, "sample.bai2", "a.bai2")
	copyFixture(t, dir, "sample.mt940", "b.sta")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "statements", "b.sta.json"), 0o755))

	svc, err := NewService(dir, config.Default(), "", logger.NewNop())
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, summary.Commit)

	cmd := exec.Command("git", "log", "--format=%s", "-1")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "import: 1 file(s)")
}

func TestRun_NothingToImport(t *testing.T) {
	svc, err := NewService(t.TempDir(), testConfig(), "", logger.NewNop())
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Imported)
}

func TestRun_AutoCommit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	require.NoError(t, gitops.Init(dir))
	copyFixture(t, dir, "sample.bai2", "a.bai2")

	cfg := config.Default()
	svc, err := NewService(dir, cfg, "", logger.NewNop())
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Commit)

	cmd := exec.Command("git", "log", "--format=%s", "-1")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "import: 1 file(s)")
}
