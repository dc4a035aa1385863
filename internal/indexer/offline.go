package indexer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbra/nzbmonkey/internal/article"
	"github.com/mbra/nzbmonkey/internal/config"
	"github.com/mbra/nzbmonkey/internal/logging"
	"github.com/mbra/nzbmonkey/internal/nzb"
	"github.com/mbra/nzbmonkey/internal/services"
	"github.com/mbra/nzbmonkey/internal/subject"
)

// FileOptions configures IndexFile.
type FileOptions struct {
	// Path is an overview dump, one tab-separated XOVER row per line. "-"
	// reads standard input.
	Path string
	// Group tags every record; dumps do not carry it.
	Group  string
	DryRun bool
	Now    func() time.Time
}

// IndexFile aggregates an overview dump and writes its documents.
func IndexFile(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts FileOptions) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if strings.TrimSpace(opts.Group) == "" {
		return nil, fmt.Errorf("%w: a group name is required to index a dump", services.ErrValidation)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	result := &Result{RunID: uuid.NewString(), Started: now()}
	ctx = services.WithRunID(ctx, result.RunID)
	ctx = services.WithGroup(ctx, opts.Group)
	log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "indexer"))

	parser, err := subject.NewParser(cfg.Matching.SubjectPattern)
	if err != nil {
		return result, err
	}
	writer, err := newDocumentWriter(cfg, opts.DryRun, now, log)
	if err != nil {
		return result, err
	}

	var in io.Reader = os.Stdin
	if opts.Path != "-" {
		f, err := os.Open(opts.Path)
		if err != nil {
			return result, fmt.Errorf("open overview dump: %w", err)
		}
		defer f.Close()
		in = f
	}

	builder := nzb.NewBuilder(parser, nzb.MatchersFor(cfg.Matching.Mode))
	malformed, err := readOverview(ctx, in, opts.Group, builder)
	if err != nil {
		return result, err
	}
	if malformed > 0 {
		logging.WarnWithContext(log, "skipped malformed overview rows", "overview_malformed",
			logging.Int("rows", malformed),
			logging.String(logging.FieldImpact, "articles in those rows are not indexed"),
		)
	}

	result.Stats = builder.Stats()
	result.Index = builder.Index()
	result.Documents = writer.writeAll(builder.Index())
	result.Duration = now().Sub(result.Started)
	logSummary(log, result)
	return result, nil
}

func readOverview(ctx context.Context, in io.Reader, group string, builder *nzb.Builder) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	malformed := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return malformed, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := article.ParseLine(group, line)
		if err != nil {
			malformed++
			continue
		}
		builder.Add(rec)
	}
	if err := scanner.Err(); err != nil {
		return malformed, fmt.Errorf("read overview dump: %w", err)
	}
	return malformed, nil
}
