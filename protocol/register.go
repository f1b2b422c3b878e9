package protocol

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ipfs/go-cid"

	"xdao.co/docreg/commitment"
	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/sealed"
)

// Receipt describes a confirmed registration.
type Receipt struct {
	ID         uint64
	Identifier cid.Cid
	Commitment commitment.Value
	Digest     digest.Digest
	Encrypted  bool
	Uploader   registry.Address
}

// Register stores file, commits to secret and records the document under
// signer. A non-empty password encrypts the stored payload.
//
// Bytes stored before a later step fails are not removed; they are content
// addressed and unreferenced.
func (p *Protocol) Register(ctx context.Context, file []byte, secret, password string, signer registry.Signer) (Receipt, error) {
	f := p.begin("register")
	switch {
	case file == nil:
		return Receipt{}, f.fail(newError(KindInput, StepInput, "no file"))
	case secret == "":
		return Receipt{}, f.fail(newError(KindInput, StepInput, "no secret"))
	case signer == nil:
		return Receipt{}, f.fail(newError(KindInput, StepInput, "no signing identity"))
	}

	if e := f.enter(ctx, StepHashing); e != nil {
		return Receipt{}, f.fail(e)
	}
	d := digest.Sum(file)
	f.with("digest", d.Hex())

	if e := f.enter(ctx, StepDuplicateCheck); e != nil {
		return Receipt{}, f.fail(e)
	}
	res, err := p.findByDigest(ctx, d)
	if err != nil {
		return Receipt{}, f.fail(classify(ctx, StepDuplicateCheck, err))
	}
	if res.Found {
		return Receipt{}, f.fail(duplicate(StepDuplicateCheck, &res.Record.Uploader, nil))
	}

	payload := file
	encrypted := password != ""
	if encrypted {
		if e := f.enter(ctx, StepEncrypting); e != nil {
			return Receipt{}, f.fail(e)
		}
		payload, err = sealed.Encrypt(file, password)
		if err != nil {
			return Receipt{}, f.fail(wrapError(KindInternal, StepEncrypting, "encrypt payload", err))
		}
	}

	if e := f.enter(ctx, StepAddressing); e != nil {
		return Receipt{}, f.fail(e)
	}
	id, err := p.store(ctx, payload)
	if err != nil {
		return Receipt{}, f.fail(classify(ctx, StepAddressing, err))
	}
	f.with("cid", id.String())

	if e := f.enter(ctx, StepCommitting); e != nil {
		return Receipt{}, f.fail(e)
	}
	value, err := p.engine.Commit(ctx, commitment.Preimage(p.opts.Binding, d, secret))
	if err != nil {
		return Receipt{}, f.fail(classify(ctx, StepCommitting, err))
	}

	if e := f.enter(ctx, StepSubmitting); e != nil {
		return Receipt{}, f.fail(e)
	}
	signed, err := registry.Sign(signer, registry.Request{
		Identifier:     id.String(),
		Commitment:     value,
		Encrypted:      encrypted,
		OriginalDigest: d,
	})
	if err != nil {
		return Receipt{}, f.fail(classify(ctx, StepSubmitting, err))
	}
	docID, err := p.submit(ctx, signed)
	if err != nil {
		if registry.IsDuplicate(err) {
			// Lost a race with another submitter; report its owner if the
			// registry can tell us.
			var owner *registry.Address
			if res, rerr := p.findByDigest(ctx, d); rerr == nil && res.Found {
				owner = &res.Record.Uploader
			}
			return Receipt{}, f.fail(duplicate(StepSubmitting, owner, err))
		}
		return Receipt{}, f.fail(classify(ctx, StepSubmitting, err))
	}
	f.with("doc_id", strconv.FormatUint(docID, 10))
	f.done()

	return Receipt{
		ID:         docID,
		Identifier: id,
		Commitment: value,
		Digest:     d,
		Encrypted:  encrypted,
		Uploader:   signer.Address(),
	}, nil
}

func duplicate(step Step, owner *registry.Address, cause error) *Error {
	msg := "document already registered"
	if owner != nil {
		msg = fmt.Sprintf("document already registered by %s", owner.Hex())
	}
	e := wrapError(KindDuplicate, step, msg, cause)
	e.Owner = owner
	return e
}
