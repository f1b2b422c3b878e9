package protocol

import (
	"time"

	"github.com/rs/zerolog"

	"xdao.co/docreg/commitment"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = 200 * time.Millisecond
	DefaultConcurrency = 8
)

// Retry bounds the exponential backoff applied to idempotent collaborator
// calls that fail as unavailable. MaxRetries of zero disables retrying.
type Retry struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

type Options struct {
	// Binding is the deployment-wide preimage mode. Register and every
	// verification use it.
	Binding commitment.Binding

	RegistryTimeout time.Duration
	StorageTimeout  time.Duration

	Retry Retry
	// Concurrency bounds the fan-out of batch lookups.
	Concurrency int

	Logger zerolog.Logger
	// Metrics may be nil.
	Metrics *Metrics
}

// DefaultOptions returns bound commitments, 30s timeouts and three retries.
func DefaultOptions() Options {
	return Options{
		Binding:         commitment.Bound,
		RegistryTimeout: DefaultTimeout,
		StorageTimeout:  DefaultTimeout,
		Retry:           Retry{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay},
		Concurrency:     DefaultConcurrency,
		Logger:          zerolog.Nop(),
	}
}

func (o Options) withDefaults() Options {
	if o.RegistryTimeout <= 0 {
		o.RegistryTimeout = DefaultTimeout
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = DefaultTimeout
	}
	if o.Retry.BaseDelay <= 0 {
		o.Retry.BaseDelay = DefaultBaseDelay
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}
