// Package gatewayinfo answers static questions about configured gateways:
// which operations they allow, whether they redirect, which fields a payer
// must supply and how much over-capture they tolerate.
package gatewayinfo

import (
	"slices"
	"strings"
	"sync"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/go-playground/validator"
)

// Mode is the granularity a gateway allows for capture or refund.
type Mode string

const (
	ModeOff      Mode = "off"
	ModeFull     Mode = "full"
	ModePartial  Mode = "partial"
	ModeMultiple Mode = "multiple"
)

// ManualGateway is always treated as manual, with or without configuration.
const ManualGateway = "Manual"

// AnyCurrency keys the fallback entry of Config.MaxExcessAmount.
const AnyCurrency = "*"

// CardFields are required from the payer by every onsite gateway.
var CardFields = []string{"name", "number", "expiryMonth", "expiryYear", "cvv"}

type Config struct {
	IsManual             bool     `koanf:"is_manual"`
	IsOffsite            *bool    `koanf:"is_offsite"`
	UseAuthorize         bool     `koanf:"use_authorize"`
	UseAsyncNotification bool     `koanf:"use_async_notification"`
	TokenKey             string   `koanf:"token_key"`
	RequiredFields       []string `koanf:"required_fields"`
	CanCapture           Mode     `koanf:"can_capture" validate:"omitempty,oneof=off full partial multiple"`
	CanRefund            Mode     `koanf:"can_refund" validate:"omitempty,oneof=off full partial multiple"`
	CanVoid              *bool    `koanf:"can_void"`
	// MaxExcessPercent and MaxExcessAmount are decimal strings.
	MaxExcessPercent string            `koanf:"max_excess_percent" validate:"omitempty,numeric"`
	MaxExcessAmount  map[string]string `koanf:"max_excess_amount"`
}

// Registry resolves per-gateway configuration. Gateways without an entry use
// the zero Config: full capture and refund, void allowed, no excess.
type Registry struct {
	configs map[string]Config
	allowed []string
	factory gateway.Factory

	mu      sync.RWMutex
	offsite map[string]bool
}

func NewRegistry(factory gateway.Factory, configs map[string]Config, allowed []string) (*Registry, error) {
	validate := validator.New()
	for name, cfg := range configs {
		if err := validate.Struct(cfg); err != nil {
			return nil, application.NewInvalidConfigurationError("gateway %q: %v", name, err)
		}
	}
	if configs == nil {
		configs = map[string]Config{}
	}
	return &Registry{
		configs: configs,
		allowed: slices.Clone(allowed),
		factory: factory,
		offsite: make(map[string]bool),
	}, nil
}

func (r *Registry) config(name string) Config {
	return r.configs[name]
}

// AllowedGateways lists gateways payments may be created for.
func (r *Registry) AllowedGateways() []string {
	return slices.Clone(r.allowed)
}

// CheckAllowed fails with InvalidConfiguration when no gateway is allowed at
// all or name is not one of them.
func (r *Registry) CheckAllowed(name string) error {
	if len(r.allowed) == 0 {
		return application.NewInvalidConfigurationError("no allowed gateways configured")
	}
	if !slices.Contains(r.allowed, name) {
		return application.NewInvalidConfigurationError("gateway %q is not allowed", name)
	}
	return nil
}

func (r *Registry) IsManual(name string) bool {
	return name == ManualGateway || r.config(name).IsManual
}

// IsOffsite uses the configured flag when set. Otherwise the gateway is
// probed once: it is offsite when it can complete a purchase or an
// authorization after the payer returns.
func (r *Registry) IsOffsite(name string) bool {
	if v := r.config(name).IsOffsite; v != nil {
		return *v
	}

	r.mu.RLock()
	v, ok := r.offsite[name]
	r.mu.RUnlock()
	if ok {
		return v
	}

	gw, err := r.factory.Create(name)
	if err != nil {
		return false
	}
	v = gateway.Supports(gw, gateway.OpCompletePurchase) || gateway.Supports(gw, gateway.OpCompleteAuthorize)

	r.mu.Lock()
	r.offsite[name] = v
	r.mu.Unlock()
	return v
}

func (r *Registry) ShouldUseAuthorize(name string) bool {
	return r.IsManual(name) || r.config(name).UseAuthorize
}

func (r *Registry) ShouldUseAsyncNotifications(name string) bool {
	if r.IsManual(name) {
		return false
	}
	return r.config(name).UseAsyncNotification
}

func (r *Registry) CaptureMode(name string) Mode {
	return orFull(r.config(name).CanCapture)
}

func (r *Registry) RefundMode(name string) Mode {
	return orFull(r.config(name).CanRefund)
}

func orFull(m Mode) Mode {
	if m == "" {
		return ModeFull
	}
	return m
}

func (r *Registry) AllowCapture(name string) bool {
	return r.CaptureMode(name) != ModeOff
}

func (r *Registry) AllowRefund(name string) bool {
	return r.RefundMode(name) != ModeOff
}

func (r *Registry) AllowVoid(name string) bool {
	if v := r.config(name).CanVoid; v != nil {
		return *v
	}
	return true
}

func (r *Registry) AllowPartialCapture(name string) bool {
	m := r.CaptureMode(name)
	return m == ModePartial || m == ModeMultiple
}

func (r *Registry) AllowPartialRefund(name string) bool {
	m := r.RefundMode(name)
	return m == ModePartial || m == ModeMultiple
}

// TokenKey returns the data key carrying a stored card token, or def.
func (r *Registry) TokenKey(name, def string) string {
	if k := r.config(name).TokenKey; k != "" {
		return k
	}
	return def
}

// RequiredFields merges the configured fields with CardFields, unless the
// gateway is offsite or manual.
func (r *Registry) RequiredFields(name string) []string {
	fields := slices.Clone(r.config(name).RequiredFields)
	if !r.IsOffsite(name) && !r.IsManual(name) {
		for _, f := range CardFields {
			if !slices.Contains(fields, f) {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// MaxExcessCapturePercent returns "0" when unset.
func (r *Registry) MaxExcessCapturePercent(name string) string {
	if p := r.config(name).MaxExcessPercent; p != "" {
		return p
	}
	return "0"
}

// MaxExcessCaptureAmount returns the fixed excess cap for currency, falling
// back to the AnyCurrency entry. The empty string means no fixed cap.
func (r *Registry) MaxExcessCaptureAmount(name, currency string) string {
	amounts := r.config(name).MaxExcessAmount
	if len(amounts) == 0 {
		return ""
	}
	for k, v := range amounts {
		if strings.EqualFold(k, currency) {
			return v
		}
	}
	return amounts[AnyCurrency]
}

// View is the read-only summary served by the gateways endpoint.
type View struct {
	Name                 string   `json:"name"`
	Manual               bool     `json:"manual"`
	Offsite              bool     `json:"offsite"`
	UseAuthorize         bool     `json:"use_authorize"`
	UseAsyncNotification bool     `json:"use_async_notification"`
	CaptureMode          Mode     `json:"capture_mode"`
	RefundMode           Mode     `json:"refund_mode"`
	CanVoid              bool     `json:"can_void"`
	RequiredFields       []string `json:"required_fields"`
}

func (r *Registry) Describe(name string) View {
	return View{
		Name:                 name,
		Manual:               r.IsManual(name),
		Offsite:              r.IsOffsite(name),
		UseAuthorize:         r.ShouldUseAuthorize(name),
		UseAsyncNotification: r.ShouldUseAsyncNotifications(name),
		CaptureMode:          r.CaptureMode(name),
		RefundMode:           r.RefundMode(name),
		CanVoid:              r.AllowVoid(name),
		RequiredFields:       r.RequiredFields(name),
	}
}
