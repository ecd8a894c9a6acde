// Package export turns a rendered document into a printable PDF. The
// pipeline runs style resolution, control flattening, pagination and PDF
// generation in that order; each step is a pure function of its input.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bhis/bhis/internal/platform/document"
)

const ContentTypePDF = "application/pdf"

// Artifact is a finished export. Data must be treated as read-only because
// concurrent callers of the same export share it.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	Pages       int
}

// Observer is notified after every pipeline run.
type Observer interface {
	ObserveExport(docType string, elapsed time.Duration, err error)
}

type Options struct {
	Palette Palette
	PDF     PDFOptions
}

type Exporter struct {
	palette  Palette
	pdf      PDFOptions
	group    singleflight.Group
	observer Observer
}

func NewExporter(opts Options) *Exporter {
	p := opts.Palette
	if p == nil {
		p = DefaultPalette
	}
	return &Exporter{palette: p, pdf: opts.PDF}
}

// SetObserver attaches an optional metrics sink.
func (e *Exporter) SetObserver(o Observer) {
	e.observer = o
}

// Export runs the pipeline for doc. Identical documents exported
// concurrently share a single run. A canceled ctx abandons the wait; the
// shared run still completes for any remaining callers.
func (e *Exporter) Export(ctx context.Context, doc document.Document) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ExportError{Stage: StageCanceled, Err: err}
	}

	key, err := cacheKey(doc)
	if err != nil {
		return nil, &ExportError{Stage: StageRender, Err: err}
	}

	ch := e.group.DoChan(key, func() (interface{}, error) {
		start := time.Now()
		a, err := e.run(doc)
		if e.observer != nil {
			e.observer.ObserveExport(doc.Type, time.Since(start), err)
		}
		return a, err
	})

	select {
	case <-ctx.Done():
		return nil, &ExportError{Stage: StageCanceled, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Artifact), nil
	}
}

func (e *Exporter) run(doc document.Document) (*Artifact, error) {
	styles, err := e.palette.ResolveStyles(doc)
	if err != nil {
		return nil, err
	}
	flat := Flatten(doc)
	blocks, err := Paginate(flat, styles)
	if err != nil {
		return nil, err
	}
	data, pages, err := WritePDF(blocks, doc.Title, doc.Subject, e.pdf)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Name:        FileName(doc.Type, doc.Subject),
		ContentType: ContentTypePDF,
		Data:        data,
		Pages:       pages,
	}, nil
}

func cacheKey(doc document.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
