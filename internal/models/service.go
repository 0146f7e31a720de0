package models

import "github.com/shopspring/decimal"

type ServiceCategory string

const (
	CategoryTaxes          ServiceCategory = "taxes"
	CategoryFines          ServiceCategory = "fines"
	CategoryAdministrative ServiceCategory = "administrative"
	CategoryPublicServices ServiceCategory = "public-services"
)

type ServiceType string

const (
	ServiceTypeIBI         ServiceType = "ibi"
	ServiceTypeGarbage     ServiceType = "garbage"
	ServiceTypePlusvalia   ServiceType = "plusvalia"
	ServiceTypeTrafficFine ServiceType = "traffic-fine"
	ServiceTypeAdminFine   ServiceType = "admin-fine"
	ServiceTypeCertificate ServiceType = "certificate"
	ServiceTypeLicense     ServiceType = "license"
	ServiceTypeRegistry    ServiceType = "registry"
	ServiceTypeWater       ServiceType = "water"
	ServiceTypeTransport   ServiceType = "transport"
	ServiceTypeSports      ServiceType = "sports"
	ServiceTypeCulture     ServiceType = "culture"
)

// Translated holds the same text in every supported locale.
type Translated struct {
	ES string `json:"es" validate:"required"`
	EN string `json:"en" validate:"required"`
}

// In returns the text for locale, falling back to Spanish.
func (t Translated) In(locale Locale) string {
	if locale == LocaleEN {
		return t.EN
	}
	return t.ES
}

type ServiceMetadata struct {
	Reference string `json:"reference,omitempty"`
	Period    string `json:"period,omitempty"`
	Deadline  string `json:"deadline,omitempty"`
}

// Service is an immutable catalog entry that can be paid for.
type Service struct {
	ID            string           `json:"id" validate:"required"`
	Type          ServiceType      `json:"type" validate:"required"`
	Category      ServiceCategory  `json:"category" validate:"required,oneof=taxes fines administrative public-services"`
	Name          Translated       `json:"name"`
	Description   Translated       `json:"description"`
	Price         int64            `json:"price" validate:"gte=0"` // satoshis
	PriceEUR      decimal.Decimal  `json:"price_eur"`
	RequiresAuth  bool             `json:"requires_auth"`
	EstimatedTime string           `json:"estimated_time,omitempty"`
	Metadata      *ServiceMetadata `json:"metadata,omitempty"`
}
