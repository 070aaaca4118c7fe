package entities

// Estado - состояние трамита. Закрытое множество, см. transitions.
type Estado string

const (
	EstadoRecibido                Estado = "recibido"
	EstadoEnRevision              Estado = "en_revision"
	EstadoDocumentacionIncompleta Estado = "documentacion_incompleta"
	EstadoEnProceso               Estado = "en_proceso"
	EstadoAprobado                Estado = "aprobado"
	EstadoRechazado               Estado = "rechazado"
	EstadoCompletado              Estado = "completado"
)

// AllEstados в порядке прохождения жизненного цикла.
var AllEstados = []Estado{
	EstadoRecibido,
	EstadoEnRevision,
	EstadoDocumentacionIncompleta,
	EstadoEnProceso,
	EstadoAprobado,
	EstadoRechazado,
	EstadoCompletado,
}

// documentacion_incompleta достижима только из en_revision.
var transitions = map[Estado][]Estado{
	EstadoRecibido:                {EstadoEnRevision},
	EstadoEnRevision:              {EstadoDocumentacionIncompleta, EstadoEnProceso, EstadoRechazado},
	EstadoDocumentacionIncompleta: {EstadoEnRevision},
	EstadoEnProceso:               {EstadoAprobado, EstadoRechazado},
	EstadoAprobado:                {EstadoCompletado},
	EstadoRechazado:               {},
	EstadoCompletado:              {},
}

func (e Estado) String() string { return string(e) }

func (e Estado) Valid() bool {
	_, ok := transitions[e]
	return ok
}

// IsTerminal - completado и rechazado не имеют исходящих переходов.
func (e Estado) IsTerminal() bool {
	return e == EstadoCompletado || e == EstadoRechazado
}

func (e Estado) AllowedTransitions() []Estado {
	next := transitions[e]
	out := make([]Estado, len(next))
	copy(out, next)
	return out
}

func (e Estado) CanTransitionTo(next Estado) bool {
	for _, candidate := range transitions[e] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Prioridad - производный уровень срочности.
type Prioridad string

const (
	PrioridadBaja    Prioridad = "baja"
	PrioridadMedia   Prioridad = "media"
	PrioridadAlta    Prioridad = "alta"
	PrioridadUrgente Prioridad = "urgente"
)

func (p Prioridad) String() string { return string(p) }

// Rank упорядочивает приоритеты: baja < media < alta < urgente.
func (p Prioridad) Rank() int {
	switch p {
	case PrioridadBaja:
		return 0
	case PrioridadMedia:
		return 1
	case PrioridadAlta:
		return 2
	case PrioridadUrgente:
		return 3
	}
	return -1
}

func (p Prioridad) Valid() bool { return p.Rank() >= 0 }
