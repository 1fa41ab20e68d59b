package answerer

import (
	"net/http"
	"time"

	"github.com/ironsheep/quiz-tapper/internal/logging"
)

// DefaultTimeout bounds one model request.
const DefaultTimeout = 60 * time.Second

type options struct {
	httpc *http.Client
	meter *Meter
	log   logging.Logger
}

// Option configures a backend.
type Option func(*options)

// WithHTTPClient replaces the HTTP client used by the OpenAI backend.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpc = c }
}

// WithMeter shares a usage meter between backends.
func WithMeter(m *Meter) Option {
	return func(o *options) { o.meter = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = logging.Or(l) }
}

func buildOptions(opts []Option) options {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpc == nil {
		o.httpc = &http.Client{Timeout: DefaultTimeout}
	}
	if o.meter == nil {
		o.meter = NewMeter(Pricing{})
	}
	return o
}
