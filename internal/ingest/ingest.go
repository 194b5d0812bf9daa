package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/coursevoice/internal/parser"
)

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// DocumentReport describes what one file contributed to the corpus.
type DocumentReport struct {
	Filename string
	Pages    int
	Chars    int
	Err      error
}

// Result is the outcome of one ingest batch. A failed document never fails
// the batch; it is reported here and skipped.
type Result struct {
	Corpus    string
	Documents []DocumentReport
}

// Failed returns the reports of documents that contributed nothing because
// they could not be parsed.
func (r Result) Failed() []DocumentReport {
	var out []DocumentReport
	for _, d := range r.Documents {
		if d.Err != nil {
			out = append(out, d)
		}
	}
	return out
}

// Ingestor turns uploaded documents into one plain-text corpus.
type Ingestor struct {
	opts parser.Options
	log  *slog.Logger

	// Progress, when set, is called after each file.
	Progress func(done, total int, report DocumentReport)
}

func New(opts parser.Options, log *slog.Logger) *Ingestor {
	return &Ingestor{opts: opts, log: log}
}

// Extract parses files in the order given and concatenates their pages. A
// cancelled context stops before the next file; documents not reached are
// reported with the context error.
func (in *Ingestor) Extract(ctx context.Context, files []File) Result {
	var corpus strings.Builder
	res := Result{Documents: make([]DocumentReport, 0, len(files))}

	for i, f := range files {
		var report DocumentReport
		if err := ctx.Err(); err != nil {
			report = DocumentReport{Filename: f.Name, Err: err}
		} else {
			report = in.extractOne(f, &corpus)
		}
		if report.Err != nil {
			in.log.Warn("document skipped", "filename", f.Name, "error", report.Err)
		}
		res.Documents = append(res.Documents, report)
		if in.Progress != nil {
			in.Progress(i+1, len(files), report)
		}
	}

	res.Corpus = corpus.String()
	in.log.Info("corpus built",
		"documents", len(files),
		"failed", len(res.Failed()),
		"corpus_chars", utf8.RuneCountInString(res.Corpus),
	)
	return res
}

func (in *Ingestor) extractOne(f File, corpus *strings.Builder) (report DocumentReport) {
	report.Filename = f.Name
	defer func() {
		if r := recover(); r != nil {
			report.Pages, report.Chars = 0, 0
			report.Err = fmt.Errorf("parse %s: %v", f.Name, r)
		}
	}()

	if len(f.Data) == 0 {
		report.Err = errors.New("empty file")
		return report
	}
	p, err := parser.ForFile(f.Name, in.opts)
	if err != nil {
		report.Err = err
		return report
	}
	tree, err := p.Parse(f.Data, f.Name)
	if err != nil {
		report.Err = fmt.Errorf("parse %s: %w", f.Name, err)
		return report
	}

	// Pages are written only after the whole document parsed, so a
	// failing document leaves no partial text behind.
	pages := tree.Pages()
	for _, page := range pages {
		corpus.WriteString(page)
		report.Chars += utf8.RuneCountInString(page)
	}
	report.Pages = len(pages)
	return report
}
