package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/bankfeed/internal/config"
	"github.com/cleared-dev/bankfeed/internal/export"
	"github.com/cleared-dev/bankfeed/internal/gitops"
	"github.com/cleared-dev/bankfeed/internal/importlog"
	"github.com/cleared-dev/bankfeed/internal/logger"
	"github.com/cleared-dev/bankfeed/internal/model"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

// FileResult is the outcome of importing one file.
type FileResult struct {
	File         FileInfo
	Format       model.Format
	Statements   int
	Transactions int
	Diagnostics  int
	Validation   []statement.ValidationError
	Output       string // relative to the repo root
}

// Summary is the outcome of one import run.
type Summary struct {
	ImportID string
	Imported []FileResult
	Skipped  []FileInfo // files whose format could not be determined
	Commit   string     // short hash, empty when nothing was committed
}

// Service imports statement files for one repository.
type Service struct {
	repoRoot string
	cfg      *config.Config
	parser   *statement.Parser
	encoder  export.Encoder
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates an import service. outputFormat overrides
// cfg.Import.OutputFormat when non-empty.
func NewService(repoRoot string, cfg *config.Config, outputFormat string, log *logger.Logger) (*Service, error) {
	if outputFormat == "" {
		outputFormat = cfg.Import.OutputFormat
	}
	enc, err := export.DefaultRegistry().Lookup(outputFormat)
	if err != nil {
		return nil, err
	}
	if _, err := statement.ParseFormat(cfg.Parse.DefaultFormat); err != nil {
		return nil, fmt.Errorf("parse.default_format: %w", err)
	}
	return &Service{
		repoRoot: repoRoot,
		cfg:      cfg,
		parser:   statement.NewParser(statement.DefaultRegistry()),
		encoder:  enc,
		log:      log,
		now:      time.Now,
	}, nil
}

// ImportFile parses one file and writes its export. The source file is left
// in place. A *statement.FormatError is returned unwrapped so callers can
// skip the file.
func (s *Service) ImportFile(ctx context.Context, f FileInfo) (FileResult, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return FileResult{}, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	content := string(data)

	format, _ := statement.ParseFormat(s.cfg.Parse.DefaultFormat)
	if format == "" {
		format = statement.Detect(content)
	}
	if format == model.FormatUnknown {
		return FileResult{}, &statement.FormatError{}
	}

	res, err := s.parser.Parse(content, string(format))
	if err != nil {
		return FileResult{}, err
	}

	for _, d := range res.Diagnostics {
		s.log.Warn(ctx, "Dropped statement input",
			"file", f.Name,
			"format", d.Format,
			"line", d.Line,
			"record", d.Record,
			"reason", d.Reason,
		)
	}

	var validation []statement.ValidationError
	if s.cfg.Parse.ValidateBalances {
		validation = statement.Validate(res.Statements)
		for _, v := range validation {
			s.log.Warn(ctx, "Statement failed validation",
				"file", f.Name,
				"check", v.Check,
				"account", v.Account,
				"description", v.Description,
			)
		}
	}

	output, err := s.writeExport(f.Name, export.NewDocument(res, validation))
	if err != nil {
		return FileResult{}, err
	}

	result := FileResult{
		File:         f,
		Format:       format,
		Statements:   len(res.Statements),
		Transactions: res.TransactionCount(),
		Diagnostics:  len(res.Diagnostics),
		Validation:   validation,
		Output:       output,
	}
	s.log.Info(ctx, "Imported statement file",
		"file", f.Name,
		"format", format,
		"statements", result.Statements,
		"transactions", result.Transactions,
		"diagnostics", result.Diagnostics,
		"output", output,
	)
	return result, nil
}

func (s *Service) writeExport(sourceName string, doc export.Document) (string, error) {
	dir := filepath.Join(s.repoRoot, s.cfg.Import.OutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	// The source extension stays in the name so jan.bai2 and jan.mt940 do
	// not share an export.
	rel := filepath.Join(s.cfg.Import.OutputDir, sourceName+s.encoder.Extension())

	out, err := os.Create(filepath.Join(s.repoRoot, rel))
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", rel, err)
	}
	if err := s.encoder.Encode(out, doc); err != nil {
		out.Close()
		return "", fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", rel, err)
	}
	return filepath.ToSlash(rel), nil
}

// Run imports every pending file, moves each imported file to the processed
// dir, appends the import log and, when enabled, commits the results.
// Files with an undetectable format are left in place and reported in
// Summary.Skipped. The first failing file stops the run; files imported
// before it are still logged and committed.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	summary := Summary{ImportID: uuid.New().String()}
	ctx = logger.WithImportID(ctx, summary.ImportID)

	files, err := Scan(s.repoRoot, s.cfg.Import)
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		s.log.Info(ctx, "No statement files to import", "dir", s.cfg.Import.Dir)
		return summary, nil
	}

	var entries []importlog.Entry
	var runErr error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		result, err := s.ImportFile(ctx, f)
		var formatErr *statement.FormatError
		if errors.As(err, &formatErr) {
			s.log.Warn(ctx, "Skipping file with unknown format", "file", f.Name, "error", err)
			summary.Skipped = append(summary.Skipped, f)
			continue
		}
		if err != nil {
			runErr = fmt.Errorf("importing %s: %w", f.Name, err)
			break
		}

		if err := MarkProcessed(s.repoRoot, s.cfg.Import, f.Name); err != nil {
			runErr = err
			break
		}

		summary.Imported = append(summary.Imported, result)
		entries = append(entries, importlog.Entry{
			Timestamp:    s.now(),
			ImportID:     summary.ImportID,
			File:         f.Name,
			Format:       string(result.Format),
			Statements:   result.Statements,
			Transactions: result.Transactions,
			Diagnostics:  result.Diagnostics,
			Output:       result.Output,
		})
	}

	// Files already moved to the processed dir are logged and committed even
	// when a later file fails, so a re-run never loses track of them.
	if err := s.record(ctx, &summary, entries); err != nil {
		return summary, errors.Join(runErr, err)
	}
	return summary, runErr
}

// record appends the import log and, when enabled, commits the run.
func (s *Service) record(ctx context.Context, summary *Summary, entries []importlog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := importlog.Append(s.repoRoot, entries); err != nil {
		return fmt.Errorf("writing import log: %w", err)
	}

	if s.cfg.Git.AutoCommit && gitops.IsRepo(s.repoRoot) {
		author := gitops.Author{Name: s.cfg.Git.AuthorName, Email: s.cfg.Git.AuthorEmail}
		hash, err := gitops.Commit(s.repoRoot, gitops.ImportMessage(len(entries)), author)
		switch {
		case errors.Is(err, gitops.ErrNothingToCommit):
		case err != nil:
			return fmt.Errorf("committing import: %w", err)
		default:
			summary.Commit = hash
			s.log.Info(ctx, "Committed import", "commit", hash, "files", len(entries))
		}
	}

	return nil
}
