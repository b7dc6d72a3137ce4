package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/middlewares"
	"github.com/peppinicontable/contable_backend/models"
	"github.com/peppinicontable/contable_backend/models/reports"
	"github.com/peppinicontable/contable_backend/utils"
	"github.com/peppinicontable/contable_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func createCompanyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		isSuperuser, _ := utils.GetIsSuperuserFromContext(c.Request.Context())
		if !isSuperuser {
			c.JSON(http.StatusForbidden, gin.H{"error": "superuser required"})
			return
		}
		var input models.NewCompany
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		company, err := models.CreateCompany(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, company)
	}
}

func accountRoutes(rg *gin.RouterGroup) {
	rg.GET("/accounts", func(c *gin.Context) {
		name := c.Query("name")
		code := c.Query("code")
		accounts, err := models.GetAccounts(c.Request.Context(), &name, &code)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, accounts)
	})
	rg.POST("/accounts", func(c *gin.Context) {
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		account, err := models.CreateAccount(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, account)
	})
	rg.PUT("/accounts/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		account, err := models.UpdateAccount(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, account)
	})
	rg.DELETE("/accounts/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		account, err := models.DeleteAccount(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, account)
	})
}

func thirdPartyRoutes(rg *gin.RouterGroup) {
	rg.GET("/terceros", func(c *gin.Context) {
		keyword := c.Query("q")
		includeDeleted := c.Query("include_deleted") == "true"
		results, err := models.GetThirdParties(c.Request.Context(), &keyword, includeDeleted)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, results)
	})
	rg.POST("/terceros", func(c *gin.Context) {
		var input models.NewThirdParty
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.CreateThirdParty(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	rg.PUT("/terceros/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		var input models.NewThirdParty
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.UpdateThirdParty(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.DELETE("/terceros/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.SoftDeleteThirdParty(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.POST("/terceros/:id/restore", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.RestoreThirdParty(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func transactionRoutes(rg *gin.RouterGroup) {
	rg.GET("/transacciones", func(c *gin.Context) {
		filter := models.TransactionFilter{}
		if v := c.Query("from"); v != "" {
			if t, err := time.Parse("2006-01-02", v); err == nil {
				filter.FromDate = &t
			}
		}
		if v := c.Query("to"); v != "" {
			if t, err := time.Parse("2006-01-02", v); err == nil {
				filter.ToDate = &t
			}
		}
		if v := c.Query("status"); v != "" {
			status := models.TransactionStatus(v)
			filter.Status = &status
		}
		if v := c.Query("q"); v != "" {
			filter.Keyword = &v
		}
		results, err := models.GetTransactions(c.Request.Context(), &filter)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, results)
	})
	rg.GET("/transacciones/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.GetTransaction(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.POST("/transacciones", func(c *gin.Context) {
		var input models.NewTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.CreateTransaction(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	rg.PUT("/transacciones/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		var input struct {
			Date    *time.Time `json:"date"`
			Concept *string    `json:"concept"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		result, err := models.UpdateTransaction(c.Request.Context(), id, input.Date, input.Concept)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.PUT("/transacciones/:id/movimientos", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		var input struct {
			Movements []*models.NewMovement `json:"movements" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		result, err := models.ReplaceMovements(c.Request.Context(), id, input.Movements)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.DELETE("/transacciones/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.DeleteOrCancelTransaction(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.GET("/transacciones/:id/validar", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.ValidateMovements(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.GET("/transacciones/:id/correcciones", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.CalculateCorrections(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.POST("/transacciones/:id/corregir", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.CorrectTransaction(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func movementRoutes(rg *gin.RouterGroup) {
	rg.GET("/movimientos", func(c *gin.Context) {
		filter := models.MovementFilter{}
		if v := c.Query("account_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				filter.AccountId = &id
			}
		}
		if v := c.Query("third_party_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				filter.ThirdPartyId = &id
			}
		}
		if v := c.Query("from"); v != "" {
			if t, err := time.Parse("2006-01-02", v); err == nil {
				filter.FromDate = &t
			}
		}
		if v := c.Query("to"); v != "" {
			if t, err := time.Parse("2006-01-02", v); err == nil {
				filter.ToDate = &t
			}
		}
		results, err := models.GetMovements(c.Request.Context(), &filter)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, results)
	})
	rg.PUT("/movimientos/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		var input models.UpdateMovementInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		result, err := models.UpdateMovement(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func classificationRoutes(rg *gin.RouterGroup) {
	rg.POST("/clasificar", func(c *gin.Context) {
		var input struct {
			Nit    string          `json:"nit" binding:"required"`
			Name   string          `json:"name" binding:"required"`
			Amount decimal.Decimal `json:"amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.ClassifyExpense(c.Request.Context(), input.Nit, input.Name, input.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.GET("/reglas", func(c *gin.Context) {
		keyword := c.Query("q")
		results, err := models.GetAccountingRules(c.Request.Context(), &keyword)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, results)
	})
	rg.POST("/reglas", func(c *gin.Context) {
		var input models.NewAccountingRule
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.CreateAccountingRule(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	rg.DELETE("/reglas/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.DeleteAccountingRule(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func reportRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard", func(c *gin.Context) {
		result, err := reports.GetDashboard(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.GET("/exportar/libro-diario", func(c *gin.Context) {
		now := time.Now()
		year := now.Year()
		month := now.Month()
		if v := c.Query("year"); v != "" {
			if y, err := strconv.Atoi(v); err == nil {
				year = y
			}
		}
		if v := c.Query("month"); v != "" {
			if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
				month = time.Month(m)
			}
		}
		f, err := reports.ExportLedgerExcel(c.Request.Context(), year, month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filename := "libro_diario_" + strconv.Itoa(year) + "_" + strconv.Itoa(int(month)) + ".xlsx"
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		if err := f.Write(c.Writer); err != nil {
			c.Status(http.StatusInternalServerError)
		}
	})
	rg.GET("/auditoria", func(c *gin.Context) {
		var referenceId *int
		if v := c.Query("reference_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				referenceId = &id
			}
		}
		var referenceType *string
		if v := c.Query("reference_type"); v != "" {
			referenceType = &v
		}
		results, err := models.GetAuditLogs(c.Request.Context(), referenceId, referenceType, nil)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, results)
	})
}

func recurringRoutes(rg *gin.RouterGroup) {
	rg.GET("/recurrentes", func(c *gin.Context) {
		results, err := models.GetRecurringTransactions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, results)
	})
	rg.POST("/recurrentes", func(c *gin.Context) {
		var input models.NewRecurringTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.CreateRecurringTransaction(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, result)
	})
	rg.DELETE("/recurrentes/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		result, err := models.DeleteRecurringTransaction(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	rg.POST("/recurrentes/generar", func(c *gin.Context) {
		generated, err := models.GenerateDueTransactions(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"generated": generated})
	})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Company-Id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(gin.Recovery())

	r.POST("/login", loginHandler())

	api := r.Group("/api", middlewares.AuthMiddleware())
	api.POST("/empresas", createCompanyHandler())
	api.GET("/empresas", func(c *gin.Context) {
		isSuperuser, _ := utils.GetIsSuperuserFromContext(c.Request.Context())
		if !isSuperuser {
			c.JSON(http.StatusForbidden, gin.H{"error": "superuser required"})
			return
		}
		companies, err := models.GetCompanies(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, companies)
	})

	scoped := api.Group("", middlewares.CompanyMiddleware())
	accountRoutes(scoped)
	thirdPartyRoutes(scoped)
	transactionRoutes(scoped)
	movementRoutes(scoped)
	classificationRoutes(scoped)
	reportRoutes(scoped)
	recurringRoutes(scoped)

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.Migrate(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Panic(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RECURRING_SCHEDULER_ENABLED")), "true") {
		workflow.StartRecurringScheduler(schedulerCtx)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("shutdown: " + err.Error())
	}
}
