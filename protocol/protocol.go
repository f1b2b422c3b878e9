// Package protocol orchestrates document registration and ownership proofs.
//
// A Protocol ties together the registry, a content-addressed store and the
// commitment engine. Every flow walks a fixed sequence of steps, checks for
// cancellation between them and fails with exactly one *Error whose Kind
// tells the caller what went wrong and whose Step tells where.
//
// The registry write is the last step of Register and is never retried.
// Lookups and storage operations are idempotent and are retried with
// exponential backoff while the collaborator reports itself unavailable.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"xdao.co/docreg/commitment"
	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/storage"
)

type Protocol struct {
	reg    registry.Registry
	addr   storage.Addresser
	engine *commitment.Engine
	opts   Options
	log    zerolog.Logger
}

// New returns a Protocol over reg and cas. A nil engine uses the native
// prover.
func New(reg registry.Registry, cas storage.CAS, engine *commitment.Engine, opts Options) (*Protocol, error) {
	if reg == nil {
		return nil, errors.New("protocol: registry is required")
	}
	if cas == nil {
		return nil, errors.New("protocol: storage is required")
	}
	if engine == nil {
		engine = commitment.NewEngine(nil)
	}
	opts = opts.withDefaults()
	return &Protocol{
		reg:    reg,
		addr:   storage.Addresser{CAS: cas, Timeout: opts.StorageTimeout},
		engine: engine,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "protocol").Logger(),
	}, nil
}

func (p *Protocol) Binding() commitment.Binding { return p.opts.Binding }

// IdentifierOnly computes the identifier a file would be stored under.
func (p *Protocol) IdentifierOnly(file []byte) (cid.Cid, error) {
	return p.addr.IdentifierOnly(file)
}

type flow struct {
	name    string
	started time.Time
	log     zerolog.Logger
	metrics *Metrics
}

func (p *Protocol) begin(name string) *flow {
	f := &flow{
		name:    name,
		started: time.Now(),
		log:     p.log.With().Str("flow", name).Logger(),
		metrics: p.opts.Metrics,
	}
	f.log.Debug().Str("state", "idle").Msg("flow started")
	return f
}

// enter moves the flow to step unless the caller abandoned it.
func (f *flow) enter(ctx context.Context, step Step) *Error {
	if err := ctx.Err(); err != nil {
		return wrapError(KindCanceled, step, "flow abandoned", err)
	}
	f.log.Debug().Str("state", string(step)).Msg("flow state")
	return nil
}

func (f *flow) with(key, val string) {
	f.log = f.log.With().Str(key, val).Logger()
}

func (f *flow) fail(e *Error) error {
	state := "failed"
	if e.Kind == KindDuplicate {
		state = "rejected"
	}
	ev := f.log.Warn()
	if e.Kind == KindCanceled {
		ev = f.log.Debug()
	}
	ev.Str("state", state).
		Str("kind", string(e.Kind)).
		Str("step", string(e.Step)).
		AnErr("cause", e.Cause).
		Msg(e.Message)
	f.metrics.observe(f.name, string(e.Kind), f.started)
	return e
}

func (f *flow) done() {
	f.log.Debug().Str("state", "confirmed").Dur("elapsed", time.Since(f.started)).Msg("flow finished")
	f.metrics.observe(f.name, outcomeOK, f.started)
}

// retrying runs fn until it succeeds, fails with something other than an
// unavailable collaborator, or the retry budget is spent.
func (p *Protocol) retrying(ctx context.Context, fn func(context.Context) error) error {
	b := retry.NewExponential(p.opts.Retry.BaseDelay)
	b = retry.WithMaxRetries(p.opts.Retry.MaxRetries, b)
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if registry.IsUnavailable(err) || storage.IsUnavailable(err) {
			p.log.Debug().Err(err).Msg("collaborator unavailable, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
}

// registryCall runs one registry operation under the registry timeout. An
// expired per-call deadline is reported as registry.ErrUnavailable.
func (p *Protocol) registryCall(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.RegistryTimeout)
	defer cancel()
	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no answer within %s: %v", registry.ErrUnavailable, p.opts.RegistryTimeout, err)
	}
	return err
}

func (p *Protocol) findByDigest(ctx context.Context, d digest.Digest) (registry.Result, error) {
	var res registry.Result
	err := p.retrying(ctx, func(ctx context.Context) error {
		return p.registryCall(ctx, func(ctx context.Context) error {
			var err error
			res, err = p.reg.FindByOriginalDigest(ctx, d)
			return err
		})
	})
	return res, err
}

func (p *Protocol) findByIdentifier(ctx context.Context, id cid.Cid) (registry.Result, error) {
	var res registry.Result
	err := p.retrying(ctx, func(ctx context.Context) error {
		return p.registryCall(ctx, func(ctx context.Context) error {
			var err error
			res, err = p.reg.FindByIdentifier(ctx, id.String())
			return err
		})
	})
	return res, err
}

func (p *Protocol) get(ctx context.Context, id uint64) (registry.Record, error) {
	var rec registry.Record
	err := p.retrying(ctx, func(ctx context.Context) error {
		return p.registryCall(ctx, func(ctx context.Context) error {
			var err error
			rec, err = p.reg.Get(ctx, id)
			return err
		})
	})
	return rec, err
}

func (p *Protocol) listByUploader(ctx context.Context, uploader registry.Address) ([]uint64, error) {
	var ids []uint64
	err := p.retrying(ctx, func(ctx context.Context) error {
		return p.registryCall(ctx, func(ctx context.Context) error {
			var err error
			ids, err = p.reg.ListByUploader(ctx, uploader)
			return err
		})
	})
	return ids, err
}

// submit performs the single registry write. It is never retried.
func (p *Protocol) submit(ctx context.Context, req registry.SignedRequest) (uint64, error) {
	var id uint64
	err := p.registryCall(ctx, func(ctx context.Context) error {
		var err error
		id, err = p.reg.Submit(ctx, req)
		return err
	})
	return id, err
}

func (p *Protocol) store(ctx context.Context, payload []byte) (cid.Cid, error) {
	var id cid.Cid
	err := p.retrying(ctx, func(ctx context.Context) error {
		var err error
		id, err = p.addr.Store(ctx, payload)
		return err
	})
	return id, err
}

func (p *Protocol) fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	var b []byte
	err := p.retrying(ctx, func(ctx context.Context) error {
		var err error
		b, err = p.addr.Fetch(ctx, id)
		return err
	})
	return b, err
}

// compare recomputes the commitment for secret under the deployment's
// binding mode and checks it against rec.
func (p *Protocol) compare(ctx context.Context, rec registry.Record, secret string) *Error {
	got, err := p.engine.Commit(ctx, commitment.Preimage(p.opts.Binding, rec.OriginalDigest, secret))
	if err != nil {
		return classify(ctx, StepCommitting, err)
	}
	if !got.Equal(rec.Commitment) {
		return newError(KindSecretMismatch, StepCommitting, "secret does not match the registered commitment")
	}
	return nil
}
