package utils

import (
	"context"

	"tramite-system/internal/entities"
	"tramite-system/pkg/contextkeys"
	apperrors "tramite-system/pkg/errors"
)

func WithActor(ctx context.Context, actor entities.Actor) context.Context {
	return context.WithValue(ctx, contextkeys.ActorKey, actor)
}

// GetActorFromCtx достаёт актора, положенного мидлваром Auth.
func GetActorFromCtx(ctx context.Context) (entities.Actor, error) {
	actor, ok := ctx.Value(contextkeys.ActorKey).(entities.Actor)
	if !ok {
		return entities.Actor{}, apperrors.ErrActorNotFoundInContext
	}
	return actor, nil
}
