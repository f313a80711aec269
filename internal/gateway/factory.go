package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
)

var ErrUnknownGateway = errors.New("unknown gateway")

// Options carries per-call collaborators into a gateway constructor.
type Options struct {
	HTTPClient  *http.Client
	HTTPRequest *http.Request
}

type Option func(*Options)

// WithHTTPClient replaces the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// WithHTTPRequest hands the inbound request (a redirect return or a
// notification) to the gateway.
func WithHTTPRequest(r *http.Request) Option {
	return func(o *Options) { o.HTTPRequest = r }
}

type Factory interface {
	Create(name string, opts ...Option) (Gateway, error)
}

// Constructor builds a gateway from its configured parameters.
type Constructor func(name string, params map[string]string, opts Options) (Gateway, error)

// Registry is the Factory used in production: gateway names are bound to a
// driver constructor and a parameter set at startup.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Constructor
	bound   map[string]binding
}

type binding struct {
	driver string
	params map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Constructor),
		bound:   make(map[string]binding),
	}
}

// RegisterDriver makes a gateway implementation available under driver.
func (r *Registry) RegisterDriver(driver string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[driver] = ctor
}

// Bind exposes gateway name backed by driver with the given parameters.
func (r *Registry) Bind(name, driver string, params map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drivers[driver]; !ok {
		return fmt.Errorf("%w: driver %q for gateway %q", ErrUnknownGateway, driver, name)
	}
	r.bound[name] = binding{driver: driver, params: params}
	return nil
}

func (r *Registry) Create(name string, opts ...Option) (Gateway, error) {
	r.mu.RLock()
	b, ok := r.bound[name]
	var ctor Constructor
	if ok {
		ctor = r.drivers[b.driver]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, name)
	}

	o := Options{HTTPClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	return ctor(name, b.params, o)
}

// Names lists bound gateway names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bound))
	for n := range r.bound {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
