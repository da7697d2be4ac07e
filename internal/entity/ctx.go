package entity

import (
	"context"
)

type (
	CtxKeyIP       struct{}
	CtxKeyDeviceID struct{}
	CtxKeyUser     struct{}
	CtxKeyToken    struct{}
)

func IPFromCtx(ctx context.Context) string {
	ip, ok := ctx.Value(CtxKeyIP{}).(string)
	if !ok {
		return ""
	}

	return ip
}

func DeviceIDFromCtx(ctx context.Context) string {
	deviceID, ok := ctx.Value(CtxKeyDeviceID{}).(string)
	if !ok {
		return ""
	}

	return deviceID
}

func SetUserToContext(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, CtxKeyUser{}, user)
}

func UserFromCtx(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(CtxKeyUser{}).(User)
	return user, ok
}

func SetTokenToContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CtxKeyToken{}, token)
}

func TokenFromCtx(ctx context.Context) string {
	token, ok := ctx.Value(CtxKeyToken{}).(string)
	if !ok {
		return ""
	}

	return token
}
