package endpoint

import "time"

// Kind selects which fetch strategy applies to a provider.
type Kind string

const (
	KindGeneric Kind = "generic"
	KindSpecial Kind = "special"
	KindGraphQL Kind = "graphql"
)

// Descriptor identifies one provider and how to query it. It is built once
// per run and never mutated afterwards.
type Descriptor struct {
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`

	// URL is the count query endpoint. Descriptors without a URL and without
	// special handling cannot be polled and are skipped.
	URL         string `json:"url"`
	EntitiesURL string `json:"entities_url"`

	// TokenURL being set means the endpoint requires an OAuth2 password
	// grant before querying.
	TokenURL     string `json:"token_url"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope"`

	Kind Kind `json:"type"`
}

func (d Descriptor) RequiresToken() bool {
	return d.TokenURL != ""
}

// DisplayName returns the supplier name, falling back to the id.
func (d Descriptor) DisplayName() string {
	if d.SupplierName != "" {
		return d.SupplierName
	}
	return d.SupplierID
}

// Outcome is the single recorded result of polling one provider in one run.
// Exactly one Outcome is produced per Descriptor regardless of retries.
type Outcome struct {
	SupplierID   string
	SupplierName string

	// TotalRecords is only meaningful when Available is true.
	TotalRecords int64
	Available    bool
	Reason       string

	Timestamp time.Time
}

func Available(d Descriptor, total int64, at time.Time) Outcome {
	return Outcome{
		SupplierID:   d.SupplierID,
		SupplierName: d.DisplayName(),
		TotalRecords: total,
		Available:    true,
		Timestamp:    at,
	}
}

func Unavailable(d Descriptor, reason string, at time.Time) Outcome {
	return Outcome{
		SupplierID:   d.SupplierID,
		SupplierName: d.DisplayName(),
		Available:    false,
		Reason:       reason,
		Timestamp:    at,
	}
}
