package protocol

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"xdao.co/docreg/registry"
)

// Document is one entry of an uploader's listing. Err is set when the record
// could not be read; the rest of the listing is still returned.
type Document struct {
	ID     uint64
	Record registry.Record
	Err    error
}

// Documents lists everything uploader registered, newest first.
func (p *Protocol) Documents(ctx context.Context, uploader registry.Address) ([]Document, error) {
	f := p.begin("documents")
	f.with("uploader", uploader.Hex())

	if e := f.enter(ctx, StepListing); e != nil {
		return nil, f.fail(e)
	}
	ids, err := p.listByUploader(ctx, uploader)
	if err != nil {
		return nil, f.fail(classify(ctx, StepListing, err))
	}

	if e := f.enter(ctx, StepLookup); e != nil {
		return nil, f.fail(e)
	}
	docs := make([]Document, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := p.get(ctx, id)
			docs[i] = Document{ID: id, Record: rec}
			if err != nil {
				docs[i].Err = classify(ctx, StepLookup, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, f.fail(wrapError(KindCanceled, StepLookup, "flow abandoned", err))
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID > docs[j].ID })
	f.done()
	return docs, nil
}
