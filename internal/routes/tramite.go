package routes

import (
	"github.com/labstack/echo/v4"

	"tramite-system/internal/authz"
	"tramite-system/internal/controllers"
	"tramite-system/pkg/middleware"
)

func runTramiteRouter(secureGroup *echo.Group, deps Dependencies, authMW *middleware.AuthMiddleware) {
	ctrl := controllers.NewTramiteController(deps.TramiteService, deps.FileStorage, deps.Gatekeeper, deps.Logger)

	secureGroup.POST("/tramites", ctrl.CreateTramite, authMW.RequirePermission(authz.TramitesCreate))
	secureGroup.GET("/tramites", ctrl.SearchTramites, authMW.RequirePermission(authz.TramitesSearch))
	secureGroup.GET("/tramites/mine", ctrl.GetMyTramites)
	secureGroup.GET("/tramites/numero/:numero", ctrl.GetByNumero)
	secureGroup.GET("/tramites/:id", ctrl.GetTramite)
	secureGroup.POST("/tramites/:id/transition", ctrl.TransitionState, authMW.RequirePermission(authz.TramitesTransition))
	secureGroup.GET("/tramites/:id/history", ctrl.GetHistory)
	secureGroup.POST("/tramites/:id/comments", ctrl.AddComment, authMW.RequirePermission(authz.TramitesComment))
	secureGroup.GET("/tramites/:id/comments", ctrl.GetComments)
	secureGroup.POST("/tramites/:id/documents", ctrl.AddDocument, authMW.RequirePermission(authz.DocumentsUpload))
	secureGroup.GET("/tramites/:id/documents", ctrl.GetDocuments)
	secureGroup.POST("/tramites/:id/document-requests", ctrl.RequestDocument, authMW.RequirePermission(authz.DocumentsRequest))
	secureGroup.GET("/tramites/:id/prediction", ctrl.GetPrediction)
}
