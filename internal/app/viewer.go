package app

import (
	"context"

	"github.com/hylla/syncnotes/internal/domain"
)

// viewerRoleContextKey stores the caller role in context.
type viewerRoleContextKey struct{}

// WithViewerRole attaches a normalized caller role to context.
func WithViewerRole(ctx context.Context, role domain.ViewerRole) context.Context {
	return context.WithValue(ctx, viewerRoleContextKey{}, domain.NormalizeRole(role))
}

// ViewerRoleFromContext returns the caller role. Absent roles default to admin; unknown ones to member.
func ViewerRoleFromContext(ctx context.Context) domain.ViewerRole {
	role, ok := ctx.Value(viewerRoleContextKey{}).(domain.ViewerRole)
	if !ok {
		return domain.RoleAdmin
	}
	if !domain.IsValidRole(role) {
		return domain.RoleMember
	}
	return role
}

// ShareVisitorRole returns the role recorded for a share-link visit.
// Share links are unauthenticated, so a visit without an explicit role counts as a member.
func ShareVisitorRole(ctx context.Context) domain.ViewerRole {
	if _, ok := ctx.Value(viewerRoleContextKey{}).(domain.ViewerRole); !ok {
		return domain.RoleMember
	}
	return ViewerRoleFromContext(ctx)
}

func requireAdmin(ctx context.Context) error {
	if ViewerRoleFromContext(ctx) != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}
