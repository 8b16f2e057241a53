// Package profile loads posting profiles.
//
// A profile tells the poster what to do with each worksheet of an upload:
// which documents to create, in which order, and which explicit header and
// line fields to set. Example:
//
//	tabs:
//	  Sales:
//	    steps:
//	      - kind: ARInvoice
//	        serviceType: I
//	        priceAfterVAT: true
//	        lineFields:
//	          WarehouseCode: WH01
//	          CostingCode: DEFAULT-costCenter
//	      - kind: IncomingPayment
//	        applyPrevious: true
//	        cashAccount: "161000"
//
// Line field values containing DEFAULT-<attr> are read from the column
// <attr> of each source line; every other value is written as-is.
package profile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"b1poster/internal/document"
	"b1poster/pkg/models"
)

// ErrInvalidProfile is returned when a profile file cannot be used.
var ErrInvalidProfile = errors.New("invalid posting profile")

// Profile maps worksheet names to posting instructions.
type Profile struct {
	Tabs map[string]*Tab `yaml:"tabs"`
}

// Tab lists the documents created for every request of a worksheet.
type Tab struct {
	Steps []*Step `yaml:"steps"`
}

// Step describes one document of a chained posting.
type Step struct {
	KindName       string         `yaml:"kind"`
	ServiceType    string         `yaml:"serviceType"`
	PriceAfterVAT  bool           `yaml:"priceAfterVAT"`
	NegativeAmount bool           `yaml:"negativeAmount"`
	BranchID       *int           `yaml:"branchId"`
	CashAccount    string         `yaml:"cashAccount"`
	SalesEmpCode   *int           `yaml:"salesEmpCode"`
	OwnerCode      *int           `yaml:"ownerCode"`
	HeaderFields   map[string]any `yaml:"headerFields"`
	LineFields     map[string]any `yaml:"lineFields"`

	// ApplyPrevious settles the document created by the previous step
	// with the request's actual deposit. Only valid for payment kinds.
	ApplyPrevious bool `yaml:"applyPrevious"`

	Kind document.Kind `yaml:"-"`
}

// Load reads and validates the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML profile.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if len(p.Tabs) == 0 {
		return fmt.Errorf("%w: no tabs defined", ErrInvalidProfile)
	}
	for name, tab := range p.Tabs {
		if tab == nil || len(tab.Steps) == 0 {
			return fmt.Errorf("%w: tab %q has no steps", ErrInvalidProfile, name)
		}
		for i, step := range tab.Steps {
			kind, err := document.ParseKind(step.KindName)
			if err != nil {
				return fmt.Errorf("%w: tab %q step %d: %v", ErrInvalidProfile, name, i+1, err)
			}
			step.Kind = kind
			if step.ApplyPrevious && (i == 0 || !kind.IsPayment()) {
				return fmt.Errorf("%w: tab %q step %d: applyPrevious needs a payment step after another step", ErrInvalidProfile, name, i+1)
			}
			switch strings.ToUpper(step.ServiceType) {
			case "", "I", "S":
			default:
				return fmt.Errorf("%w: tab %q step %d: serviceType must be I or S", ErrInvalidProfile, name, i+1)
			}
		}
	}
	return nil
}

// Tab returns the instructions for a worksheet, matching names
// case-insensitively.
func (p *Profile) Tab(name string) (*Tab, bool) {
	if tab, ok := p.Tabs[name]; ok {
		return tab, true
	}
	for key, tab := range p.Tabs {
		if strings.EqualFold(key, name) {
			return tab, true
		}
	}
	return nil, false
}

// Apply returns a copy of req configured for this step. Values already set
// on req win over profile defaults for branch, account and employee codes.
func (s *Step) Apply(req models.RequestContext) *models.RequestContext {
	out := req
	if strings.EqualFold(s.ServiceType, "S") {
		out.Mode = models.ServiceDocument
	} else if s.ServiceType != "" {
		out.Mode = models.ItemDocument
	}
	out.PriceAfterVAT = s.PriceAfterVAT
	out.NegativeAmount = s.NegativeAmount
	if out.BranchID == 0 && s.BranchID != nil {
		out.BranchID = *s.BranchID
	}
	if out.CashAccount == "" {
		out.CashAccount = s.CashAccount
	}
	if out.SalesEmpCode == nil {
		out.SalesEmpCode = s.SalesEmpCode
	}
	if out.OwnerCode == nil {
		out.OwnerCode = s.OwnerCode
	}

	if len(s.HeaderFields) > 0 {
		out.HeaderOverrides = make(map[string]models.FieldOverride, len(s.HeaderFields))
		for key, value := range s.HeaderFields {
			out.HeaderOverrides[key] = models.Literal(value)
		}
	}
	out.LineOverrides = models.ParseOverrides(s.LineFields)
	return &out
}
