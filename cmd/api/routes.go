package main

import (
	"incubator-platform/internal/audit"
	"incubator-platform/internal/auth"
	"incubator-platform/internal/httpapi"
	"incubator-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// screens maps page routes to the screen names recorded on each view.
var screens = map[string]string{
	"/":          "login",
	"/login":     "login",
	"/dashboard": "dashboard",
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
//
// Chain order on protected routes: gate -> capture -> elevation -> handler.
// The gate runs outside the capture so rejected credentials are not recorded;
// elevation runs inside it so denials are.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, gate *auth.Gate, pipe *audit.Pipeline) {
	r.Use(audit.NewScreenLogger(pipe.Service(), gate, screens).Middleware())

	// public
	r.GET("/healthz", httpapi.Health)
	for path, name := range screens {
		r.GET(path, httpapi.Screen(name))
	}

	api := r.Group("/api")
	api.GET("/", pipe.Capture("/api/", "API_STATUS_CHECK"), h.Status)
	api.POST("/register", pipe.Capture("/api/register", "USUARIO_REGISTRO"), h.Register)
	api.POST("/login", h.Login)

	protected := func(endpoint, action string, elevated bool, fn auth.ProtectedHandler) []gin.HandlerFunc {
		chain := []gin.HandlerFunc{gate.Require(), pipe.Capture(endpoint, action)}
		if elevated {
			chain = append(chain, rbac.RequireElevated())
		}
		return append(chain, auth.Handle(fn))
	}

	api.POST("/logout", protected("/api/logout", "LOGOUT", false, h.Logout)...)
	api.GET("/logs", protected("/api/logs", "CONSULTAR_LOGS", true, h.Logs)...)

	// incubation data
	api.POST("/leituras", protected("/api/leituras", "CRIAR_LEITURAS", false, h.CreateReadings)...)
	api.GET("/leituras", protected("/api/leituras", "LISTAR_LEITURAS", false, h.ListReadings)...)
	api.PUT("/leituras/:id", protected("/api/leituras/:id", "ATUALIZAR_LEITURA", false, h.UpdateReading)...)
	api.DELETE("/leituras/:id", protected("/api/leituras/:id", "DELETAR_LEITURA", false, h.DeleteReading)...)

	api.POST("/parametros", protected("/api/parametros", "CRIAR_PARAMETRO", true, h.CreateParameter)...)
	api.GET("/parametros", protected("/api/parametros", "BUSCAR_PARAMETROS", true, h.FindParameters)...)
	api.PUT("/parametros/:id", protected("/api/parametros/:id", "ATUALIZAR_PARAMETRO", true, h.UpdateParameter)...)
	api.GET("/empresas", protected("/api/empresas", "LISTAR_EMPRESAS", true, h.ListCompanies)...)
	api.GET("/lotes", protected("/api/lotes", "LISTAR_LOTES", false, h.ListBatches)...)
}
