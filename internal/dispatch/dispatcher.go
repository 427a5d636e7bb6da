package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ironlady/newsletter-platform/internal/domain"
	"github.com/ironlady/newsletter-platform/internal/transport"
)

const (
	// DefaultConcurrency bounds the fan-out worker pool.
	DefaultConcurrency = 4

	// DefaultRecipientTimeout bounds one transport call so a single hung
	// recipient cannot stall the whole batch.
	DefaultRecipientTimeout = 30 * time.Second
)

// Failure records one recipient whose delivery was not accepted.
type Failure struct {
	Subscriber domain.Subscriber `json:"subscriber"`
	Err        error             `json:"-"`
	Reason     string            `json:"reason"`
}

// Result is the outcome of one campaign dispatch. SentCount plus
// len(Failures) always equals the number of resolved recipients.
type Result struct {
	SentCount int       `json:"sent_count"`
	Failures  []Failure `json:"failures"`
}

// Dispatcher fans a campaign out to its resolved recipients. It performs
// no retries and persists no counters; both are the caller's concern.
type Dispatcher struct {
	resolver         Resolver
	transport        transport.Transport
	concurrency      int
	recipientTimeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency sets the worker pool size. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n >= 1 {
			d.concurrency = n
		}
	}
}

// WithRecipientTimeout sets the per-recipient transport timeout.
func WithRecipientTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.recipientTimeout = t
		}
	}
}

// New creates a Dispatcher.
func New(resolver Resolver, tr transport.Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:         resolver,
		transport:        tr,
		concurrency:      DefaultConcurrency,
		recipientTimeout: DefaultRecipientTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch resolves the campaign's recipients and attempts delivery to
// each of them. A transport failure for one recipient is recorded and
// does not halt the rest; SentCount is the number of successful
// hand-offs. The returned error is non-nil only when recipients could
// not be resolved at all (no dispatch was attempted).
func (d *Dispatcher) Dispatch(ctx context.Context, c *domain.Campaign, tmpl *domain.Template) (*Result, error) {
	recipients, err := d.resolver.Resolve(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	outcomes := make([]error, len(recipients))

	workers := d.concurrency
	if workers > len(recipients) {
		workers = len(recipients)
	}

	if workers <= 1 {
		for i := range recipients {
			outcomes[i] = d.sendOne(ctx, tmpl, &recipients[i])
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func() {
				defer wg.Done()
				for i := range jobs {
					outcomes[i] = d.sendOne(ctx, tmpl, &recipients[i])
				}
			}()
		}
		for i := range recipients {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	res := &Result{}
	for i, err := range outcomes {
		if err != nil {
			res.Failures = append(res.Failures, Failure{
				Subscriber: recipients[i],
				Err:        err,
				Reason:     err.Error(),
			})
			continue
		}
		res.SentCount++
	}
	return res, nil
}

// sendOne renders and hands off a single message under the per-recipient
// timeout. Panics from a transport implementation are converted into a
// per-recipient failure so one bad recipient cannot take down the batch.
func (d *Dispatcher) sendOne(ctx context.Context, tmpl *domain.Template, sub *domain.Subscriber) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.recipientTimeout)
	defer cancel()

	subject, body := Render(tmpl, sub)
	return d.transport.Send(sendCtx, transport.Message{
		To:       sub.Email,
		ToName:   sub.Name,
		Subject:  subject,
		HTMLBody: body,
	})
}
