package auth

import (
	"context"

	"github.com/dropDatabas3/storegate/internal/observability/logger"
)

// LogoutService ends a session. The gateway is stateless: logout is clearing
// the cookie pair and sending the principal back to a public page. Provider
// tokens are not revoked upstream here.
type LogoutService interface {
	Logout(ctx context.Context, slug string) (redirect string)
}

type logoutService struct{}

// NewLogoutService creates a LogoutService.
func NewLogoutService() LogoutService {
	return &logoutService{}
}

func (s *logoutService) Logout(ctx context.Context, slug string) string {
	logger.From(ctx).Info("session logout",
		logger.Layer("service"),
		logger.Component("auth.logout"),
		logger.TenantSlug(slug),
	)
	if slug != "" {
		return "/store/" + slug
	}
	return "/"
}
