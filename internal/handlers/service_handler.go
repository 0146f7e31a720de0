package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/x402-pay/internal/catalog"
	"github.com/akylbek/payment-system/x402-pay/internal/interfaces"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

type ServiceHandler struct {
	catalog     *catalog.Catalog
	facilitator interfaces.Facilitator
}

func NewServiceHandler(cat *catalog.Catalog, facilitator interfaces.Facilitator) *ServiceHandler {
	return &ServiceHandler{catalog: cat, facilitator: facilitator}
}

// ListServices supports ?category= and ?q= (matched in ?locale=, default es).
func (h *ServiceHandler) ListServices(c *gin.Context) {
	services := h.catalog.All()
	if category := c.Query("category"); category != "" {
		services = h.catalog.ByCategory(models.ServiceCategory(category))
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		locale, ok := models.ParseLocale(c.Query("locale"))
		if !ok {
			locale = models.LocaleES
		}
		matched := make(map[string]bool)
		for _, svc := range h.catalog.Search(q, locale) {
			matched[svc.ID] = true
		}
		filtered := services[:0:0]
		for _, svc := range services {
			if matched[svc.ID] {
				filtered = append(filtered, svc)
			}
		}
		services = filtered
	}
	if services == nil {
		services = []models.Service{}
	}
	c.JSON(http.StatusOK, gin.H{
		"services":   services,
		"categories": h.catalog.Categories(),
	})
}

func (h *ServiceHandler) GetService(c *gin.Context) {
	svc, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		writeError(c, models.ErrUnknownService)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// AccessResource serves a protected resource the x402 way: with a valid
// X-PAYMENT-PROOF it returns the resource, otherwise it relays the
// facilitator's challenge.
func (h *ServiceHandler) AccessResource(c *gin.Context) {
	path := catalog.ResourcePath(c.Param("id"))
	ctx := c.Request.Context()

	if proof := c.GetHeader(models.HeaderPaymentProof); proof != "" {
		body, err := h.facilitator.AccessResource(ctx, path, proof)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, body)
		return
	}

	challenge, err := h.facilitator.RequestResource(ctx, path)
	if err != nil {
		writeError(c, err)
		return
	}
	for name, value := range challenge.Headers {
		c.Header(name, value)
	}
	c.JSON(challenge.Status, gin.H{
		"body":          challenge.Body,
		"accessibility": challenge.Accessibility,
	})
}
