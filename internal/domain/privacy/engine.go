package privacy

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopadmin/backend/internal/domain/identity"
)

// FieldKind selects the masking rule for a field
type FieldKind int

const (
	KindEmail FieldKind = iota + 1
	KindPhone
	KindName
	KindAddress
)

func (k FieldKind) mask(v string) string {
	switch k {
	case KindEmail:
		return MaskEmail(v)
	case KindPhone:
		return MaskPhone(v)
	case KindName:
		return MaskName(v)
	case KindAddress:
		return MaskAddress(v)
	}
	return v
}

// DefaultFields maps response field names to their masking rule
func DefaultFields() map[string]FieldKind {
	return map[string]FieldKind{
		"email":          KindEmail,
		"user_email":     KindEmail,
		"customer_email": KindEmail,
		"phone":          KindPhone,
		"name":           KindName,
		"user_name":      KindName,
		"recipient":      KindName,
		"road_address":   KindAddress,
		"jibun_address":  KindAddress,
		"detail_address": KindAddress,
		"address":        KindAddress,
	}
}

// Engine masks PII fields by name anywhere in a JSON-shaped payload
type Engine struct {
	fields map[string]FieldKind
}

// Option configures an Engine
type Option func(*Engine)

func WithField(name string, kind FieldKind) Option {
	return func(e *Engine) {
		e.fields[name] = kind
	}
}

// NewEngine creates an engine with the default field table
func NewEngine(opts ...Option) *Engine {
	e := &Engine{fields: DefaultFields()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the output of Apply
type Result struct {
	// Payload is the normalized, possibly masked, payload
	Payload any
	// FullView is true when PII was returned unmasked. The caller must
	// write one PII_FULL_VIEW audit row for the request.
	FullView bool
	// Fields counts the PII values found
	Fields int
}

// Mask returns a masked copy of payload regardless of permissions
func (e *Engine) Mask(payload any) (any, error) {
	tree, err := normalize(payload)
	if err != nil {
		return nil, err
	}
	e.walk(tree, true)
	return tree, nil
}

// Apply masks payload unless perms hold PII_FULL_VIEW
func (e *Engine) Apply(payload any, perms identity.PermissionSet) (Result, error) {
	tree, err := normalize(payload)
	if err != nil {
		return Result{}, err
	}
	if perms.Has(identity.PermPIIFullView) {
		n := e.walk(tree, false)
		return Result{Payload: tree, FullView: n > 0, Fields: n}, nil
	}
	n := e.walk(tree, true)
	return Result{Payload: tree, Fields: n}, nil
}

// ContainsPII reports whether payload has any non-empty PII field
func (e *Engine) ContainsPII(payload any) (bool, error) {
	tree, err := normalize(payload)
	if err != nil {
		return false, err
	}
	return e.walk(tree, false) > 0, nil
}

// walk visits every object in the tree, counting non-empty PII strings and
// masking them in place when mask is set.
func (e *Engine) walk(node any, mask bool) int {
	n := 0
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			if kind, ok := e.fields[key]; ok {
				if s, isStr := child.(string); isStr && s != "" {
					n++
					if mask {
						v[key] = kind.mask(s)
					}
					continue
				}
			}
			n += e.walk(child, mask)
		}
	case []any:
		for _, child := range v {
			n += e.walk(child, mask)
		}
	}
	return n
}

func normalize(payload any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload for masking: %w", err)
		}
		raw = b
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode payload for masking: %w", err)
	}
	return tree, nil
}
