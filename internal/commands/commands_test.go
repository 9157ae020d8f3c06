package commands_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "bankfeed-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "bankfeed")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/bankfeed")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runBankfeed(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "BANKFEED_LOG_LEVEL=error")
	out, err := cmd.Output()
	return string(out), err
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	return path
}

func hasGit() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

type parsedDoc struct {
	Statements []struct {
		Format         string `json:"format"`
		AccountNumber  string `json:"accountNumber"`
		OpeningBalance string `json:"openingBalance"`
		ClosingBalance string `json:"closingBalance"`
		Transactions   []struct {
			Amount string `json:"amount"`
			Type   string `json:"type"`
		} `json:"transactions"`
	} `json:"statements"`
	Diagnostics []struct {
		Reason string `json:"reason"`
	} `json:"diagnostics"`
	Validation []struct {
		Check string `json:"check"`
	} `json:"validation"`
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, dir, "init", dir, "--no-git")
	require.NoError(t, err)

	for _, d := range []string{"import", filepath.Join("import", "processed"), "statements", "logs"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	data, err := os.ReadFile(filepath.Join(dir, "bankfeed.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_format: auto")

	_, err = os.Stat(filepath.Join(dir, ".git"))
	assert.True(t, os.IsNotExist(err), "--no-git should not create a repository")
}

func TestInit_GitRepo(t *testing.T) {
	if !hasGit() {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	_, err := runBankfeed(t, dir, "init", dir)
	require.NoError(t, err)

	log := exec.Command("git", "log", "--format=%s|%an <%ae>", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "init:")
	assert.Contains(t, string(out), "Bankfeed Importer <importer@bankfeed.local>")
}

func TestParse_File(t *testing.T) {
	out, err := runBankfeed(t, t.TempDir(), "parse", fixture(t, "sample.bai2"))
	require.NoError(t, err)

	var doc parsedDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Statements, 1)
	s := doc.Statements[0]
	assert.Equal(t, "BAI2", s.Format)
	assert.Equal(t, "ACCT123", s.AccountNumber)
	assert.Equal(t, "1000.00", s.OpeningBalance)
	require.Len(t, s.Transactions, 2)
	assert.Equal(t, "credit", s.Transactions[0].Type)
	assert.Empty(t, doc.Diagnostics)
}

func TestParse_Stdin(t *testing.T) {
	data, err := os.ReadFile(fixture(t, "sample.mt940"))
	require.NoError(t, err)

	cmd := exec.Command(binaryPath, "parse", "-", "--format", "mt940")
	cmd.Dir = t.TempDir()
	cmd.Stdin = strings.NewReader(string(data))
	out, err := cmd.Output()
	require.NoError(t, err)

	var doc parsedDoc
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Statements, 1)
	assert.Equal(t, "MT940", doc.Statements[0].Format)
	assert.Equal(t, "148749.50", doc.Statements[0].ClosingBalance)
}

func TestParse_CSVOutput(t *testing.T) {
	out, err := runBankfeed(t, t.TempDir(), "parse", fixture(t, "sample_camt053.xml"), "-o", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, "header plus two transactions")
	assert.Contains(t, lines[1], "DE89370400440532013000")
}

func TestParse_UnknownFormatFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world\n"), 0o644))

	_, err := runBankfeed(t, dir, "parse", path)
	require.Error(t, err)
}

func TestParse_ValidateFailsOnBrokenContinuity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.bai2")
	content := "01,SENDER,RECEIVER,240101,0800,1,,,2/\n" +
		"02,CUSTOMER,BANK,1,240101,0800,USD,2/\n" +
		"03,ACCT123,USD,010,100000,,,040,999999,,/\n" +
		"16,165,50000,0,REF001,,DEPOSIT/\n" +
		"49,1149999,3/\n98,1149999,1,5/\n99,1149999,1,7/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, err := runBankfeed(t, dir, "parse", path, "--validate")
	require.Error(t, err)

	var doc parsedDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Validation, 1)
	assert.Equal(t, "balance-continuity", doc.Validation[0].Check)
}

func TestParse_Diagnostics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.bai2")
	content := "01,SENDER,RECEIVER,240101,0800,1,,,2/\n" +
		"03,ACCT123,USD,010,100000,,/\n" +
		"16,165,ABC,0,REF001,,DEPOSIT/\n" +
		"99,0,1,4/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, err := runBankfeed(t, dir, "parse", path, "--diagnostics")
	require.NoError(t, err)

	var doc parsedDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Statements, 1)
	assert.Empty(t, doc.Statements[0].Transactions)
	require.Len(t, doc.Diagnostics, 1)
	assert.Contains(t, doc.Diagnostics[0].Reason, "invalid amount")
}

func TestDetect(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"sample.bai2", "BAI2"},
		{"multi_account.bai2", "BAI2"},
		{"sample.mt940", "MT940"},
		{"sample_camt053.xml", "CAMT053"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			out, err := runBankfeed(t, t.TempDir(), "detect", fixture(t, tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestDetect_Unknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world\n"), 0o644))

	out, err := runBankfeed(t, dir, "detect", path)
	require.Error(t, err)
	assert.Equal(t, "UNKNOWN", strings.TrimSpace(out))
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	_, err := runBankfeed(t, dir, "init", dir, "--no-git")
	require.NoError(t, err)

	files := map[string]string{
		"march.bai2":  "sample.bai2",
		"april.mt940": "sample.mt940",
	}
	for name, src := range files {
		data, err := os.ReadFile(fixture(t, src))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "import", name), data, 0o644))
	}

	out, err := runBankfeed(t, dir, "import", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "imported march.bai2 (BAI2)")
	assert.Contains(t, out, "imported april.mt940 (MT940)")

	for _, name := range []string{"march.bai2.json", "april.mt940.json"} {
		_, err := os.Stat(filepath.Join(dir, "statements", name))
		require.NoError(t, err)
	}
	for name := range files {
		_, err := os.Stat(filepath.Join(dir, "import", "processed", name))
		require.NoError(t, err, "%s should be moved to processed", name)
	}

	log, err := os.ReadFile(filepath.Join(dir, "logs", "import-log.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(log), "\n"), "header plus one entry per file")

	out, err = runBankfeed(t, dir, "import", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to import")
}
