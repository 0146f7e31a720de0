// Package catalog holds the static list of payable municipal services.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

//go:embed services.yaml
var defaultCatalog []byte

const resourcePrefix = "/api/services/"

var validate = validator.New()

type catalogFile struct {
	Services []serviceEntry `yaml:"services"`
}

type serviceEntry struct {
	ID       string `yaml:"id"`
	Type     string `yaml:"type"`
	Category string `yaml:"category"`
	Name     struct {
		ES string `yaml:"es"`
		EN string `yaml:"en"`
	} `yaml:"name"`
	Description struct {
		ES string `yaml:"es"`
		EN string `yaml:"en"`
	} `yaml:"description"`
	Price         int64                   `yaml:"price"`
	PriceEUR      string                  `yaml:"price_eur"`
	RequiresAuth  bool                    `yaml:"requires_auth"`
	EstimatedTime string                  `yaml:"estimated_time"`
	Metadata      *models.ServiceMetadata `yaml:"metadata"`
}

// Catalog is an immutable, ordered set of services.
type Catalog struct {
	services []models.Service
	byID     map[string]int
}

// Default returns the embedded municipal catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded service catalog is invalid: %v", err))
	}
	return c
}

// Parse builds a catalog from YAML and validates every entry.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		services: make([]models.Service, 0, len(file.Services)),
		byID:     make(map[string]int, len(file.Services)),
	}
	for _, entry := range file.Services {
		svc, err := entry.toService()
		if err != nil {
			return nil, err
		}
		if _, dup := c.byID[svc.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %q", svc.ID)
		}
		c.byID[svc.ID] = len(c.services)
		c.services = append(c.services, svc)
	}
	return c, nil
}

func (e serviceEntry) toService() (models.Service, error) {
	price, err := decimal.NewFromString(e.PriceEUR)
	if err != nil {
		return models.Service{}, fmt.Errorf("service %q: invalid price_eur %q: %w", e.ID, e.PriceEUR, err)
	}
	// Trailing zeros are dropped so the value survives a JSON round trip.
	price = decimal.RequireFromString(price.String())

	svc := models.Service{
		ID:            e.ID,
		Type:          models.ServiceType(e.Type),
		Category:      models.ServiceCategory(e.Category),
		Name:          models.Translated{ES: e.Name.ES, EN: e.Name.EN},
		Description:   models.Translated{ES: e.Description.ES, EN: e.Description.EN},
		Price:         e.Price,
		PriceEUR:      price,
		RequiresAuth:  e.RequiresAuth,
		EstimatedTime: e.EstimatedTime,
		Metadata:      e.Metadata,
	}
	if err := validate.Struct(svc); err != nil {
		return models.Service{}, fmt.Errorf("service %q: %w", e.ID, err)
	}
	return svc, nil
}

// All returns the services in catalog order.
func (c *Catalog) All() []models.Service {
	out := make([]models.Service, len(c.services))
	copy(out, c.services)
	return out
}

func (c *Catalog) Get(id string) (models.Service, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Service{}, false
	}
	return c.services[i], true
}

func (c *Catalog) ByCategory(category models.ServiceCategory) []models.Service {
	var out []models.Service
	for _, svc := range c.services {
		if svc.Category == category {
			out = append(out, svc)
		}
	}
	return out
}

// Search matches query case-insensitively against the name and
// description in the given locale.
func (c *Catalog) Search(query string, locale models.Locale) []models.Service {
	q := strings.ToLower(query)
	var out []models.Service
	for _, svc := range c.services {
		if strings.Contains(strings.ToLower(svc.Name.In(locale)), q) ||
			strings.Contains(strings.ToLower(svc.Description.In(locale)), q) {
			out = append(out, svc)
		}
	}
	return out
}

// Categories lists the categories present in the catalog, sorted.
func (c *Catalog) Categories() []models.ServiceCategory {
	seen := make(map[models.ServiceCategory]bool)
	var out []models.ServiceCategory
	for _, svc := range c.services {
		if !seen[svc.Category] {
			seen[svc.Category] = true
			out = append(out, svc.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ResourcePath is the protected resource path for a service.
func ResourcePath(serviceID string) string {
	return resourcePrefix + serviceID
}

// ServiceIDFromPath extracts the service id from a resource path.
func ServiceIDFromPath(path string) (string, bool) {
	if !strings.HasPrefix(path, resourcePrefix) {
		return "", false
	}
	id := strings.TrimPrefix(path, resourcePrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
