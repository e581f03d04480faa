package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BarkinBalci/behavioral-analytics-service/internal/domain"
	"github.com/BarkinBalci/behavioral-analytics-service/internal/dto"
)

// HeaderAPIKey carries the caller's API key
const HeaderAPIKey = "X-API-Key"

const tenantKey = "tenant"

// KeyStore resolves API keys to tenants
type KeyStore struct {
	tenants map[string]domain.Tenant
}

// NewKeyStore parses key -> "orgId/projectId" pairs
func NewKeyStore(keys map[string]string) (*KeyStore, error) {
	tenants := make(map[string]domain.Tenant, len(keys))
	for key, value := range keys {
		org, project, ok := strings.Cut(value, "/")
		if key == "" || !ok || org == "" || project == "" {
			return nil, fmt.Errorf("invalid API key mapping %q: expected key:orgId/projectId", key+":"+value)
		}
		tenants[key] = domain.Tenant{OrgID: org, ProjectID: project}
	}
	return &KeyStore{tenants: tenants}, nil
}

// Lookup returns the tenant owning key
func (s *KeyStore) Lookup(key string) (domain.Tenant, bool) {
	tenant, ok := s.tenants[key]
	return tenant, ok
}

// Middleware rejects requests without a known API key and stores the caller's tenant in the context
func Middleware(store *KeyStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAPIKey)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "unauthorized",
				Message: "API key missing",
			})
			return
		}

		tenant, ok := store.Lookup(key)
		if !ok {
			log.Warn("Rejected unknown API key",
				zap.String("path", c.FullPath()),
				zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
				Error:   "forbidden",
				Message: "invalid API key",
			})
			return
		}

		c.Set(tenantKey, tenant)
		c.Next()
	}
}

// TenantFrom returns the tenant stored by Middleware
func TenantFrom(c *gin.Context) domain.Tenant {
	if v, ok := c.Get(tenantKey); ok {
		if tenant, ok := v.(domain.Tenant); ok {
			return tenant
		}
	}
	return domain.Tenant{}
}

// Resolve checks optional orgId/projectId values from a request body against the caller's tenant
func Resolve(caller domain.Tenant, orgID, projectID string) (domain.Tenant, error) {
	if (orgID != "" && orgID != caller.OrgID) || (projectID != "" && projectID != caller.ProjectID) {
		return domain.Tenant{}, fmt.Errorf("%w: request names %s/%s but API key belongs to %s/%s",
			domain.ErrTenantMismatch, orgID, projectID, caller.OrgID, caller.ProjectID)
	}
	return caller, nil
}
