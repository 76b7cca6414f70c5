package http

import "github.com/gin-gonic/gin"

// Register mounts the engine routes on the given group.
func Register(g *gin.RouterGroup, h *Handler) {
	projects := g.Group("/projects")
	projects.POST("", h.createProject)
	projects.GET("/:id", h.getProject)
	projects.GET("/:id/history", h.history)
	projects.POST("/:id/transition", h.transition)
	projects.POST("/:id/claim", h.claimProject)
	projects.POST("/:id/quote", h.issueQuote)
	projects.GET("/:id/quote", h.activeQuote)
	projects.POST("/:id/quote/accept", h.acceptQuote)
	projects.POST("/:id/quote/reject", h.rejectQuote)
	projects.POST("/:id/payment/confirm", h.confirmPayment)
	projects.POST("/:id/assign", h.assignDoer)
	projects.POST("/:id/deliverable", h.deliverableUploaded)
	projects.POST("/:id/revision", h.requestRevision)
	projects.POST("/:id/complete", h.complete)
	projects.POST("/:id/cancel", h.cancel)

	wallets := g.Group("/wallets")
	wallets.GET("/:owner_id", h.balance)
	wallets.GET("/:owner_id/statement", h.statement)

	profiles := g.Group("/profiles")
	profiles.POST("", h.createProfile)
	profiles.GET("/:id", h.getProfile)
}
