package protocol

import (
	"context"

	"xdao.co/docreg/cidutil"
	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/sealed"
)

// Download fetches a registered document and returns its original bytes.
// Encrypted documents need the password they were registered with; a wrong
// one fails with KindAuthentication. Content the storage network cannot
// produce in time is KindNetworkUnavailable.
func (p *Protocol) Download(ctx context.Context, identifier, password string) ([]byte, registry.Record, error) {
	f := p.begin("download")
	id, err := cidutil.Parse(identifier)
	if err != nil {
		return nil, registry.Record{}, f.fail(wrapError(KindInput, StepInput, "invalid identifier", err))
	}
	f.with("cid", id.String())

	if e := f.enter(ctx, StepLookup); e != nil {
		return nil, registry.Record{}, f.fail(e)
	}
	res, err := p.findByIdentifier(ctx, id)
	if err != nil {
		return nil, registry.Record{}, f.fail(classify(ctx, StepLookup, err))
	}
	if !res.Found {
		return nil, registry.Record{}, f.fail(newError(KindNotRegistered, StepLookup, "identifier is not registered"))
	}
	rec := res.Record
	if rec.Encrypted && password == "" {
		return nil, rec, f.fail(newError(KindInput, StepInput, "document is encrypted; password required"))
	}

	if e := f.enter(ctx, StepFetching); e != nil {
		return nil, rec, f.fail(e)
	}
	payload, err := p.fetch(ctx, id)
	if err != nil {
		return nil, rec, f.fail(classify(ctx, StepFetching, err))
	}

	plain := payload
	if rec.Encrypted {
		if e := f.enter(ctx, StepDecrypting); e != nil {
			return nil, rec, f.fail(e)
		}
		plain, err = sealed.Decrypt(payload, password)
		if err != nil {
			return nil, rec, f.fail(classify(ctx, StepDecrypting, err))
		}
	}
	if digest.Sum(plain) != rec.OriginalDigest {
		return nil, rec, f.fail(newError(KindInternal, StepDecrypting, "content does not match the registered digest"))
	}
	f.done()
	return plain, rec, nil
}
