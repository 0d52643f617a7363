// Package strategy defines the interface every delivery channel implements.
package strategy

import (
	"context"
	"errors"
	"sort"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
)

// ErrMissingCredentials is returned by a channel that cannot send because its
// credentials are not configured. No network call was made.
var ErrMissingCredentials = errors.New("missing channel credentials")

// Result is the outcome of one send, as written to the delivery log.
type Result struct {
	Success      bool
	RequestBody  string
	ResponseBody string
	// ResultCode is the channel's own status: an HTTP status or a provider code.
	ResultCode string
	Metadata   map[string]string
}

// Channel delivers jobs of one channel type.
//
// Send returns a nil error whenever the request reached the provider, with
// Result.Success carrying the provider's verdict. A non-nil error means the
// request could not be built or sent; Result may still describe the attempt.
type Channel interface {
	Send(ctx context.Context, job *jobs.Job) (*Result, error)
	Type() domain.ChannelType
}

// Registry maps channel types to their implementations.
type Registry struct {
	channels map[domain.ChannelType]Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[domain.ChannelType]Channel),
	}
}

// Register adds a channel, replacing any channel of the same type.
func (r *Registry) Register(ch Channel) {
	r.channels[ch.Type()] = ch
}

// Get retrieves the channel for a type.
func (r *Registry) Get(t domain.ChannelType) (Channel, bool) {
	ch, ok := r.channels[t]
	return ch, ok
}

// List returns the registered types in ascending order.
func (r *Registry) List() []domain.ChannelType {
	types := make([]domain.ChannelType, 0, len(r.channels))
	for t := range r.channels {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
