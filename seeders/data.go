package seeders

import "tramite-system/pkg/constants"

type tipoTramiteSeed struct {
	Codigo               string
	Nombre               string
	Descripcion          string
	DocumentosRequeridos []string
	TiempoEstimadoDias   int
	Costo                float64
}

var tiposTramitesData = []tipoTramiteSeed{
	{
		Codigo:               constants.TipoLicenciaConstruccion,
		Nombre:               "Licencia de Construcción",
		Descripcion:          "Permiso para construcción de vivienda",
		DocumentosRequeridos: []string{"Planos arquitectónicos", "Título de propiedad", "Identificación del solicitante"},
		TiempoEstimadoDias:   30,
		Costo:                150,
	},
	{
		Codigo:               constants.TipoCertificadoResidencia,
		Nombre:               "Certificado de Residencia",
		Descripcion:          "Certificado que acredita residencia",
		DocumentosRequeridos: []string{"Identificación", "Comprobante de domicilio"},
		TiempoEstimadoDias:   3,
		Costo:                25,
	},
	{
		Codigo:               constants.TipoPermisoComercial,
		Nombre:               "Permiso Comercial",
		Descripcion:          "Permiso para establecimiento comercial",
		DocumentosRequeridos: []string{"Registro fiscal", "Identificación del propietario", "Contrato de arrendamiento"},
		TiempoEstimadoDias:   7,
		Costo:                75,
	},
	{
		Codigo:               constants.TipoReclamoServicios,
		Nombre:               "Reclamo por Servicios",
		Descripcion:          "Presentación de reclamo por servicios municipales",
		DocumentosRequeridos: []string{"Identificación", "Comprobante de pago", "Evidencia del problema"},
		TiempoEstimadoDias:   5,
		Costo:                0,
	},
	{
		Codigo:               constants.TipoPermisoEvento,
		Nombre:               "Permiso para Evento",
		Descripcion:          "Autorización de eventos en espacio público",
		DocumentosRequeridos: []string{"Identificación del organizador", "Plan de seguridad", "Croquis del lugar"},
		TiempoEstimadoDias:   10,
		Costo:                50,
	},
}
