package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"tramite-system/internal/dto"
	"tramite-system/internal/entities"
)

// Оценки детерминированы: те же входы дают тот же прогноз.

var baseDiasPorTipo = map[string]int{
	"licencia":    8,
	"comercial":   5,
	"certificado": 2,
	"reclamo":     4,
	"evento":      3,
}

// Срочный трамит не может ждать дольше высокого.
var factorPrioridad = map[entities.Prioridad]float64{
	entities.PrioridadUrgente: 0.7,
	entities.PrioridadAlta:    0.7,
	entities.PrioridadMedia:   1.0,
	entities.PrioridadBaja:    1.3,
}

// Известные ошибки по ключевому слову типа.
var erroresConocidos = map[string][]string{
	"licencia":    {"Planos sin firma de arquitecto", "Medidas inconsistentes", "Falta certificado de zonificación"},
	"comercial":   {"Registro fiscal vencido", "Falta certificado de bomberos", "Documentos de propiedad incompletos"},
	"certificado": {"Comprobante de domicilio antiguo", "Identificación vencida"},
}

var recomendacionesGenerales = []string{
	"Mantener documentación actualizada",
	"Responder rápidamente a solicitudes adicionales",
	"Verificar requisitos específicos del tipo de trámite",
}

// tipoKeyword сводит код или название типа к ключу таблиц выше.
func tipoKeyword(t entities.Tramite) string {
	name := t.TipoCodigo()
	if t.TipoTramite != nil {
		name += " " + t.TipoTramite.Nombre
	}
	name = strings.ToLower(name)
	for _, kw := range []string{"licencia", "comercial", "certificado", "reclamo", "evento"} {
		if strings.Contains(name, kw) {
			return kw
		}
	}
	return ""
}

// PredictTramite оценивает срок и вероятность одобрения. errores - обязательные документы,
// которые ещё не загружены.
func PredictTramite(t entities.Tramite, errores []string) dto.PredictionDTO {
	kw := tipoKeyword(t)

	base, ok := baseDiasPorTipo[kw]
	if !ok {
		base = 5
	}
	factor, ok := factorPrioridad[t.Prioridad]
	if !ok {
		factor = 1.0
	}
	dias := int(math.Round(float64(base) * factor))

	prob := 85 - 10*len(errores)
	if prob < 20 {
		prob = 20
	}

	problemas := append([]string{}, erroresConocidos[kw]...)
	return dto.PredictionDTO{
		TiempoEstimadoDias:     dias,
		TiempoEstimado:         fmt.Sprintf("%d días", dias),
		ProbabilidadAprobacion: prob,
		PosiblesProblemas:      problemas,
		Recomendaciones:        append([]string{}, recomendacionesGenerales...),
	}
}

// MissingRequiredDocuments - обязательные документы типа, которых нет среди загруженных.
func MissingRequiredDocuments(tipo *entities.TipoTramite, docs []entities.Documento) []string {
	if tipo == nil {
		return nil
	}
	have := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		have[d.NombreDocumento] = struct{}{}
	}
	var missing []string
	for _, req := range tipo.DocumentosRequeridos {
		if _, ok := have[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

// StaffMember - сотрудник для распределения: специализации по ключу типа и текущая загрузка.
type StaffMember struct {
	ID              uuid.UUID
	Especialidades  []string
	CargaActual     int
	CapacidadMaxima int
}

func (m StaffMember) handles(kw string) bool {
	for _, e := range m.Especialidades {
		if strings.EqualFold(e, kw) {
			return true
		}
	}
	return false
}

// OptimizeAssignment раздаёт трамиты наименее загруженным подходящим сотрудникам со свободной
// ёмкостью. Загрузка выбранного растёт после каждого назначения; трамит без кандидата пропускается.
func OptimizeAssignment(tramites []entities.Tramite, staff []StaffMember) []dto.AssignmentDTO {
	pool := make([]StaffMember, len(staff))
	copy(pool, staff)

	out := make([]dto.AssignmentDTO, 0, len(tramites))
	for _, t := range tramites {
		kw := tipoKeyword(t)

		candidates := make([]int, 0, len(pool))
		for i, m := range pool {
			if m.handles(kw) && m.CargaActual < m.CapacidadMaxima {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			return pool[candidates[a]].CargaActual < pool[candidates[b]].CargaActual
		})

		chosen := &pool[candidates[0]]
		chosen.CargaActual++
		out = append(out, dto.AssignmentDTO{
			TramiteID:          t.ID.String(),
			PersonalID:         chosen.ID.String(),
			TiempoEstimadoDias: PredictTramite(t, nil).TiempoEstimadoDias,
		})
	}
	return out
}
