package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tramite-system/internal/entities"
	"tramite-system/pkg/constants"
)

func tramiteForPrediction(codigo string, p entities.Prioridad) entities.Tramite {
	return entities.Tramite{
		ID:          uuid.New(),
		Prioridad:   p,
		TipoTramite: &entities.TipoTramite{Codigo: codigo},
	}
}

func TestPredictTramite(t *testing.T) {
	tests := []struct {
		name      string
		codigo    string
		prioridad entities.Prioridad
		errores   []string
		dias      int
		prob      int
		problemas int
	}{
		{"licencia media", constants.TipoLicenciaConstruccion, entities.PrioridadMedia, nil, 8, 85, 3},
		{"licencia alta", constants.TipoLicenciaConstruccion, entities.PrioridadAlta, nil, 6, 85, 3},
		{"comercial baja", constants.TipoPermisoComercial, entities.PrioridadBaja, []string{"a"}, 7, 75, 3},
		{"certificado alta", constants.TipoCertificadoResidencia, entities.PrioridadAlta, nil, 1, 85, 2},
		{"reclamo", constants.TipoReclamoServicios, entities.PrioridadMedia, nil, 4, 85, 0},
		{"evento baja", constants.TipoPermisoEvento, entities.PrioridadBaja, nil, 4, 85, 0},
		{"licencia urgente как alta", constants.TipoLicenciaConstruccion, entities.PrioridadUrgente, nil, 6, 85, 3},
		{"desconocido", "otro", entities.PrioridadUrgente, nil, 4, 85, 0},
		{"много ошибок", constants.TipoPermisoComercial, entities.PrioridadMedia, make([]string, 9), 5, 20, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PredictTramite(tramiteForPrediction(tt.codigo, tt.prioridad), tt.errores)
			assert.Equal(t, tt.dias, p.TiempoEstimadoDias)
			assert.Equal(t, tt.prob, p.ProbabilidadAprobacion)
			assert.Len(t, p.PosiblesProblemas, tt.problemas)
			assert.Len(t, p.Recomendaciones, 3)
		})
	}
}

func TestPredictTramite_Deterministic(t *testing.T) {
	tr := tramiteForPrediction(constants.TipoLicenciaConstruccion, entities.PrioridadMedia)
	assert.Equal(t, PredictTramite(tr, []string{"x"}), PredictTramite(tr, []string{"x"}))
}

func TestOptimizeAssignment_LeastLoadedWithCapacity(t *testing.T) {
	ana := StaffMember{ID: uuid.New(), Especialidades: []string{"licencia", "comercial"}, CargaActual: 2, CapacidadMaxima: 3}
	luis := StaffMember{ID: uuid.New(), Especialidades: []string{"licencia"}, CargaActual: 0, CapacidadMaxima: 1}
	sofia := StaffMember{ID: uuid.New(), Especialidades: []string{"certificado"}, CargaActual: 0, CapacidadMaxima: 5}

	tramites := []entities.Tramite{
		tramiteForPrediction(constants.TipoLicenciaConstruccion, entities.PrioridadMedia),
		tramiteForPrediction(constants.TipoLicenciaConstruccion, entities.PrioridadMedia),
		tramiteForPrediction(constants.TipoLicenciaConstruccion, entities.PrioridadMedia),
		tramiteForPrediction(constants.TipoReclamoServicios, entities.PrioridadMedia),
	}

	out := OptimizeAssignment(tramites, []StaffMember{ana, luis, sofia})
	require.Len(t, out, 2, "третьей лицензии не хватило ёмкости, для reclamo нет специалиста")
	assert.Equal(t, luis.ID.String(), out[0].PersonalID)
	assert.Equal(t, ana.ID.String(), out[1].PersonalID)
	assert.Equal(t, 8, out[0].TiempoEstimadoDias)

	assert.Equal(t, 2, ana.CargaActual, "исходный список не меняется")
}
