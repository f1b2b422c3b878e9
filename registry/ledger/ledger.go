// Package ledger is an append-only document registry stored in badger.
//
// Every record lives under doc/<id>; secondary indexes map the original
// digest, the content identifier and the uploader to ids. A submission writes
// the record and all indexes in one transaction, so uniqueness of the
// original digest is enforced by the transaction, not by callers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"xdao.co/docreg/digest"
	"xdao.co/docreg/registry"
)

const defaultConflictRetries = 16

type Options struct {
	// Dir is the badger directory. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	Logger   zerolog.Logger
	// Now stamps new records. Defaults to time.Now.
	Now func() time.Time
}

// Ledger implements registry.Registry.
type Ledger struct {
	db  *badger.DB
	log zerolog.Logger
	now func() time.Time
}

var _ registry.Registry = (*Ledger)(nil)

func Open(opts Options) (*Ledger, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, errors.New("ledger: directory is required")
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts = bopts.WithLogger(newBadgerLogger(opts.Logger))

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("ledger: open badger: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		db:  db,
		log: opts.Logger.With().Str("component", "ledger").Logger(),
		now: now,
	}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) Submit(ctx context.Context, req registry.SignedRequest) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := req.Request.Validate(); err != nil {
		return 0, err
	}
	uploader, err := req.Uploader()
	if err != nil {
		return 0, err
	}

	var id uint64
	err = retryOnConflict(func() error {
		return l.db.Update(func(txn *badger.Txn) error {
			r := req.Request
			if _, err := txn.Get(digestKey(r.OriginalDigest)); err == nil {
				return registry.ErrDuplicate
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			next, err := nextID(txn)
			if err != nil {
				return err
			}
			rec := registry.Record{
				ID:             next,
				Identifier:     r.Identifier,
				Commitment:     r.Commitment,
				Uploader:       uploader,
				Encrypted:      r.Encrypted,
				OriginalDigest: r.OriginalDigest,
				RegisteredAt:   l.now().UTC(),
			}
			val, err := registry.Marshal(rec)
			if err != nil {
				return err
			}
			idb := encodeID(next)
			if err := txn.Set(docKey(next), val); err != nil {
				return err
			}
			if err := txn.Set(digestKey(r.OriginalDigest), idb); err != nil {
				return err
			}
			// The identifier index keeps the first record that used it.
			if _, err := txn.Get(cidKey(r.Identifier)); errors.Is(err, badger.ErrKeyNotFound) {
				if err := txn.Set(cidKey(r.Identifier), idb); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			if err := txn.Set(uploaderKey(uploader, next), nil); err != nil {
				return err
			}
			id = next
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			l.log.Debug().Str("digest", req.Request.OriginalDigest.Hex()).Msg("duplicate submission rejected")
			return 0, err
		}
		return 0, mapErr(err)
	}
	l.log.Debug().
		Uint64("doc_id", id).
		Str("cid", req.Request.Identifier).
		Str("uploader", uploader.Hex()).
		Msg("document recorded")
	return id, nil
}

func (l *Ledger) Get(ctx context.Context, id uint64) (registry.Record, error) {
	if err := ctx.Err(); err != nil {
		return registry.Record{}, err
	}
	var rec registry.Record
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return registry.Record{}, mapErr(err)
	}
	return rec, nil
}

func (l *Ledger) FindByOriginalDigest(ctx context.Context, d digest.Digest) (registry.Result, error) {
	return l.findBy(ctx, digestKey(d))
}

func (l *Ledger) FindByIdentifier(ctx context.Context, identifier string) (registry.Result, error) {
	return l.findBy(ctx, cidKey(identifier))
}

func (l *Ledger) findBy(ctx context.Context, indexKey []byte) (registry.Result, error) {
	if err := ctx.Err(); err != nil {
		return registry.Result{}, err
	}
	var res registry.Result
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			res = registry.NotFound
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, ok := decodeID(raw)
		if !ok {
			return fmt.Errorf("ledger: corrupt index entry %q", indexKey)
		}
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		res = registry.Found(rec)
		return nil
	})
	if err != nil {
		return registry.Result{}, mapErr(err)
	}
	return res, nil
}

func (l *Ledger) ListByUploader(ctx context.Context, uploader registry.Address) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []uint64
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := uploaderPrefix(uploader)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, ok := decodeID(it.Item().Key()[len(prefix):])
			if !ok {
				return fmt.Errorf("ledger: corrupt uploader index key %x", it.Item().Key())
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return ids, nil
}

func getRecord(txn *badger.Txn, id uint64) (registry.Record, error) {
	item, err := txn.Get(docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return registry.Record{}, registry.ErrUnknownDocument
	}
	if err != nil {
		return registry.Record{}, err
	}
	var rec registry.Record
	err = item.Value(func(v []byte) error {
		return registry.Unmarshal(v, &rec)
	})
	return rec, err
}

// nextID advances meta/seq inside txn. Ids start at 1.
func nextID(txn *badger.Txn) (uint64, error) {
	var cur uint64
	item, err := txn.Get(keySeq)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return 0, err
		}
		v, ok := decodeID(raw)
		if !ok {
			return 0, errors.New("ledger: corrupt sequence")
		}
		cur = v
	}
	next := cur + 1
	return next, txn.Set(keySeq, encodeID(next))
}

func retryOnConflict(op func() error) error {
	var err error
	for i := 0; i < defaultConflictRetries; i++ {
		err = op()
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrUnknownDocument), errors.Is(err, registry.ErrDuplicate):
		return err
	case errors.Is(err, badger.ErrDBClosed), errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	default:
		return err
	}
}
