package protocol

import (
	"context"

	"golang.org/x/sync/errgroup"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
)

// VerifyByFile proves that file is registered and that secret is the one it
// was registered with. It fails with KindNotRegistered for an unknown file
// and KindSecretMismatch for a known file with the wrong secret.
func (p *Protocol) VerifyByFile(ctx context.Context, file []byte, secret string) (registry.Record, error) {
	f := p.begin("verify-file")
	switch {
	case file == nil:
		return registry.Record{}, f.fail(newError(KindInput, StepInput, "no file"))
	case secret == "":
		return registry.Record{}, f.fail(newError(KindInput, StepInput, "no secret"))
	}

	if e := f.enter(ctx, StepHashing); e != nil {
		return registry.Record{}, f.fail(e)
	}
	d := digest.Sum(file)
	f.with("digest", d.Hex())

	if e := f.enter(ctx, StepLookup); e != nil {
		return registry.Record{}, f.fail(e)
	}
	res, err := p.findByDigest(ctx, d)
	if err != nil {
		return registry.Record{}, f.fail(classify(ctx, StepLookup, err))
	}
	if !res.Found {
		return registry.Record{}, f.fail(newError(KindNotRegistered, StepLookup, "file is not registered"))
	}

	if e := f.enter(ctx, StepCommitting); e != nil {
		return registry.Record{}, f.fail(e)
	}
	if e := p.compare(ctx, res.Record, secret); e != nil {
		return registry.Record{}, f.fail(e)
	}
	f.done()
	return res.Record, nil
}

// VerifyByIdentifier proves knowledge of the secret a stored identifier was
// registered with, without the file at hand.
//
// Under unbound deployments this check is replayable: a leaked secret
// verifies against every identifier registered with it. Under bound
// deployments the record's original digest is the binding context.
func (p *Protocol) VerifyByIdentifier(ctx context.Context, identifier, secret string) (registry.Record, error) {
	f := p.begin("verify-identifier")
	if secret == "" {
		return registry.Record{}, f.fail(newError(KindInput, StepInput, "no secret"))
	}
	id, err := cidutil.Parse(identifier)
	if err != nil {
		return registry.Record{}, f.fail(wrapError(KindInput, StepInput, "invalid identifier", err))
	}
	f.with("cid", id.String())

	if e := f.enter(ctx, StepLookup); e != nil {
		return registry.Record{}, f.fail(e)
	}
	res, err := p.findByIdentifier(ctx, id)
	if err != nil {
		return registry.Record{}, f.fail(classify(ctx, StepLookup, err))
	}
	if !res.Found {
		return registry.Record{}, f.fail(newError(KindNotRegistered, StepLookup, "identifier is not registered"))
	}

	if e := f.enter(ctx, StepCommitting); e != nil {
		return registry.Record{}, f.fail(e)
	}
	if e := p.compare(ctx, res.Record, secret); e != nil {
		return registry.Record{}, f.fail(e)
	}
	f.done()
	return res.Record, nil
}

// IdentifierResult is the outcome of one identifier in a batch.
type IdentifierResult struct {
	Identifier string
	Record     registry.Record
	Err        error
}

func (r IdentifierResult) Verified() bool { return r.Err == nil }

// VerifyIdentifiers checks secret against every identifier concurrently.
// Results are in input order. The returned error is non-nil only when ctx
// ends before every check finished.
func (p *Protocol) VerifyIdentifiers(ctx context.Context, identifiers []string, secret string) ([]IdentifierResult, error) {
	results := make([]IdentifierResult, len(identifiers))
	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)
	for i, identifier := range identifiers {
		g.Go(func() error {
			rec, err := p.VerifyByIdentifier(ctx, identifier, secret)
			results[i] = IdentifierResult{Identifier: identifier, Record: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return results, wrapError(KindCanceled, StepLookup, "batch abandoned", err)
	}
	return results, nil
}
