package contextkeys

type contextKey string

const (
	// ActorKey - entities.Actor, положенный мидлваром аутентификации.
	ActorKey contextKey = "Actor"
)
