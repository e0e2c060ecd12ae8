package syncclient

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/catalog"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/protocol"
	"go.uber.org/zap"
)

var ErrNoValidRows = errors.New("csv contains no valid product")

type ImportReport struct {
	Imported int   `json:"imported"`
	Skipped  int   `json:"skipped"`
	Version  int64 `json:"version"`
}

// ImportCSV replaces the server catalog with the rows of r, sent in chunks with the
// first chunk resetting the collection. Local edits are dropped once the import
// succeeds. A file without valid rows leaves everything untouched.
func (e *Engine) ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	raws, err := catalog.ParseCSV(r)
	if err != nil {
		return nil, err
	}
	products, skipped := catalog.NormalizeList(raws)
	if len(products) == 0 {
		return nil, ErrNoValidRows
	}

	e.mu.Lock()
	e.stopTimerLocked()
	theme, pageSize := e.state.Theme, e.state.PageSize
	e.mu.Unlock()

	report := &ImportReport{Skipped: skipped}
	var last *protocol.ImportChunkResponse
	for start := 0; start < len(products); start += e.opts.ChunkSize {
		end := start + e.opts.ChunkSize
		if end > len(products) {
			end = len(products)
		}
		req := protocol.ImportChunkRequest{
			Action:   protocol.ActionImportChunk,
			Products: products[start:end],
			Reset:    start == 0,
		}
		if start == 0 {
			req.Theme = &theme
			req.PageSize = &pageSize
		}
		resp, err := e.remote.ImportChunk(ctx, req)
		if err != nil {
			e.log.Error("import chunk failed", zap.Int("offset", start), zap.Error(err))
			e.emit(TopicError, err)
			e.recoverImport(ctx, start > 0)
			return report, errors.Wrapf(err, "import chunk at row %d", start)
		}
		report.Imported += resp.Imported
		last = resp
	}
	report.Version = last.Version

	snap := &domain.Snapshot{
		Products:   domain.CloneProducts(products),
		Categories: last.Categories,
		Theme:      domain.NormalizeTheme(last.Theme),
		PageSize:   domain.NormalizePageSize(last.PageSize),
		Version:    last.Version,
	}
	e.mu.Lock()
	e.editSeq++
	e.adoptLocked(snap)
	out := e.state.Clone()
	e.mu.Unlock()

	e.log.Info("catalog imported",
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
		zap.Int64("version", report.Version))
	e.emit(TopicChanged, out)
	return report, nil
}

// recoverImport restores the flush schedule after a failed import. Once the server
// has been reset by an earlier chunk the last snapshot no longer describes it: the
// server state is pulled, and when that fails the live state is resent in full.
func (e *Engine) recoverImport(ctx context.Context, serverReset bool) {
	if !serverReset {
		e.mu.Lock()
		if e.pending {
			e.armLocked()
		}
		e.mu.Unlock()
		return
	}
	err := e.pull(ctx, true)
	if err == nil {
		return
	}
	e.log.Warn("resync after partial import failed", zap.Error(err))
	e.mu.Lock()
	e.last = nil
	e.markDirtyLocked()
	e.mu.Unlock()
}

// ExportCSV writes the live catalog.
func (e *Engine) ExportCSV(w io.Writer) error {
	return catalog.WriteCSV(w, e.Snapshot().Products)
}
