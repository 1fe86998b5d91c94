package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/netbill/netbill/internal/api/v1"
	"github.com/netbill/netbill/internal/rest/middleware"
)

// Handlers groups the HTTP handlers wired into the router
type Handlers struct {
	Health     *v1.HealthHandler
	Plan       *v1.PlanHandler
	Invoice    *v1.InvoiceHandler
	Payment    *v1.PaymentHandler
	BillingRun *v1.BillingRunHandler
}

func NewHandlers(
	plan *v1.PlanHandler,
	invoice *v1.InvoiceHandler,
	payment *v1.PaymentHandler,
	billingRun *v1.BillingRunHandler,
) Handlers {
	return Handlers{
		Health:     v1.NewHealthHandler(),
		Plan:       plan,
		Invoice:    invoice,
		Payment:    payment,
		BillingRun: billingRun,
	}
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	plans := router.Group("/plans")
	{
		plans.POST("", handlers.Plan.CreatePlan)
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
		plans.POST("/:id/rates", handlers.Plan.AddRate)
		plans.POST("/:id/activate", handlers.Plan.ActivatePlan)
		plans.POST("/:id/deactivate", handlers.Plan.DeactivatePlan)
	}

	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.GenerateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/balance", handlers.Invoice.GetUserBalance)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.POST("/:id/void", handlers.Invoice.VoidInvoice)
	}

	payments := router.Group("/payments")
	{
		payments.POST("", handlers.Payment.RecordPayment)
		payments.GET("", handlers.Payment.ListPayments)
		payments.GET("/:id", handlers.Payment.GetPayment)
	}

	router.POST("/billing-runs", handlers.BillingRun.Run)
}
