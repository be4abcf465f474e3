package utils

import (
	"context"

	"github.com/mmdatafocus/seedstore_backend/appctx"
)

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyOfficerId     = appctx.ContextKeyOfficerId
	ContextKeyOfficerName   = appctx.ContextKeyOfficerName
	ContextKeyOfficerRole   = appctx.ContextKeyOfficerRole
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetOfficerIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyOfficerId)
}

func GetOfficerNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyOfficerName)
}

func GetOfficerRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyOfficerRole)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetOfficerIdInContext(ctx context.Context, officerId int) context.Context {
	return appctx.Set(ctx, ContextKeyOfficerId, officerId)
}

func SetOfficerNameInContext(ctx context.Context, name string) context.Context {
	return appctx.Set(ctx, ContextKeyOfficerName, name)
}

func SetOfficerRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, ContextKeyOfficerRole, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
