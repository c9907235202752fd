package config

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type ctxKey int

const (
	correlationKey ctxKey = iota
	debugKey
	createdKey
	subjectKey
	moduleKey
)

const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SetContextCorrelationId starts a new correlation id: eight random
// characters followed by value. The creation time of a parent context is
// kept so elapsed time spans the whole operation.
func SetContextCorrelationId(ctx context.Context, value string) context.Context {
	id := make([]byte, 8)
	for idx := range id {
		id[idx] = chars[rand.Intn(len(chars))]
	}
	ctx = context.WithValue(ctx, correlationKey, fmt.Sprintf("%s-%s", id, value))

	if GetContextTimeCreated(ctx) == -1 {
		ctx = context.WithValue(ctx, createdKey, time.Now().Unix())
	}
	return context.WithValue(ctx, debugKey, BoolValue("HEALTH_DEBUG"))
}

// GetContextTimeCreated returns the unix creation time, or -1 when unset.
func GetContextTimeCreated(ctx context.Context) int64 {
	if v, ok := ctx.Value(createdKey).(int64); ok {
		return v
	}
	return -1
}

func AppendToContextCorrelationId(ctx context.Context, value string) context.Context {
	return context.WithValue(ctx, correlationKey, GetContextCorrelationId(ctx)+"-"+value)
}

func GetContextCorrelationId(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey).(string); ok {
		return v
	}
	return "no-id"
}

func GetContextDebug(ctx context.Context) bool {
	v, _ := ctx.Value(debugKey).(bool)
	return v
}

// SetContextSubject tags side-channel log lines with the subject an
// operation runs for.
func SetContextSubject(ctx context.Context, subjectID string) context.Context {
	if subjectID == "" {
		return ctx
	}
	return context.WithValue(ctx, subjectKey, subjectID)
}

func GetContextSubject(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}

// SetContextModule tags side-channel log lines with a module id.
func SetContextModule(ctx context.Context, moduleID string) context.Context {
	if moduleID == "" {
		return ctx
	}
	return context.WithValue(ctx, moduleKey, moduleID)
}

func GetContextModule(ctx context.Context) string {
	v, _ := ctx.Value(moduleKey).(string)
	return v
}
