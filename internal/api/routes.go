package api

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches the API surface to the router.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/ping", h.Ping)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/evaluations", h.Evaluate)

		certificates := v1.Group("/certificates")
		{
			certificates.GET("/export", h.ExportRegistry)
			certificates.GET("/verify/:fingerprint", h.VerifyCertificate)
			certificates.GET("/:id", h.GetCertificate)
			certificates.GET("/:id/pdf", h.GetCertificatePDF)
		}
	}
}
