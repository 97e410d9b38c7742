package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"academix/internal/aiclient"
	"academix/internal/attendance"
	"academix/internal/auth"
	"academix/internal/config"
	"academix/internal/csvimport"
	"academix/internal/httpmiddleware"
	"academix/internal/leads"
	"academix/internal/notes"
	"academix/internal/queue"
	"academix/internal/roster"
	"academix/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "academix:sessions")
	}

	gen := aiclient.New(cfg.GenServiceURL, cfg.GenAPIKey, cfg.GenModel, cfg.GenSkip)

	attRepo := attendance.NewRepository(db.Client)
	lifecycle := auth.NewLifecycle()
	cache := attendance.NewCache()
	svc := attendance.NewService(attRepo)
	rc := attendance.NewReconciler(svc, attRepo, cache, lifecycle)

	userRepo := auth.NewRepository(db.Client)
	studentRepo := roster.NewRepository(db.Client)
	noteRepo := notes.NewRepository(db.Client)
	leadRepo := leads.NewRepository(db.Client)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// --- auth ---

	issueTokens := func(c *gin.Context, u *auth.User) {
		tokens, err := auth.Issue(u.ID, u.Email, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = userRepo.SaveRefreshToken(c.Request.Context(), u.ID, tokens.RefreshToken, tokens.RefreshExp)
		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
			"user":          u,
		})
	}

	r.POST("/v1/auth/register", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=8"`
			FullName string `json:"full_name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, err := userRepo.Create(c.Request.Context(), req.Email, req.FullName, req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "registration failed"})
			return
		}
		_ = lifecycle.Transition(u.ID, auth.Authenticating)
		_ = lifecycle.Transition(u.ID, auth.Authenticated)
		issueTokens(c, &u)
	})

	r.POST("/v1/auth/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, err := userRepo.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		if lifecycle.State(u.ID) != auth.Authenticated {
			_ = lifecycle.Transition(u.ID, auth.Authenticating)
			if err := lifecycle.Transition(u.ID, auth.Authenticated); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
		}
		if err := rc.Refresh(c.Request.Context(), u.ID); err != nil {
			log.Printf("initial record fetch for %s failed: %v", u.ID, err)
		}
		issueTokens(c, u)
	})

	r.POST("/v1/auth/refresh", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims, err := auth.Parse(req.RefreshToken, cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		valid, err := userRepo.RefreshTokenValid(c.Request.Context(), req.RefreshToken)
		if err != nil || !valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token revoked or expired"})
			return
		}
		_ = userRepo.RevokeRefreshToken(c.Request.Context(), req.RefreshToken)
		tokens, err := auth.Issue(claims.UserID, claims.Email, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = userRepo.SaveRefreshToken(c.Request.Context(), claims.UserID, tokens.RefreshToken, tokens.RefreshExp)
		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer), resumeSession(lifecycle, rc))

	authGroup.POST("/auth/logout", func(c *gin.Context) {
		userID := auth.UserID(c)
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
			_ = userRepo.RevokeRefreshToken(c.Request.Context(), req.RefreshToken)
		}
		_ = lifecycle.Transition(userID, auth.Unauthenticated)
		cache.Clear(userID)
		c.JSON(http.StatusOK, gin.H{"status": "signed out"})
	})

	authGroup.POST("/auth/recovery/start", func(c *gin.Context) {
		userID := auth.UserID(c)
		if err := lifecycle.Transition(userID, auth.PasswordRecovery); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "recovery started"})
	})

	authGroup.POST("/auth/recovery/complete", func(c *gin.Context) {
		userID := auth.UserID(c)
		var req struct {
			Password string `json:"password" binding:"required,min=8"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := userRepo.SetPassword(c.Request.Context(), userID, req.Password); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password update failed"})
			return
		}
		if err := lifecycle.Transition(userID, auth.Authenticated); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		_ = rc.Refresh(c.Request.Context(), userID)
		c.JSON(http.StatusOK, gin.H{"status": "password updated"})
	})

	// --- attendance ---

	authGroup.GET("/records", func(c *gin.Context) {
		userID := auth.UserID(c)
		if c.Query("refresh") == "1" || len(rc.Records(userID)) == 0 {
			if err := rc.Refresh(c.Request.Context(), userID); err != nil {
				respondReconcilerError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"records": rc.Records(userID)})
	})

	authGroup.POST("/sessions", func(c *gin.Context) {
		userID := auth.UserID(c)
		var req struct {
			Date       string            `json:"date" binding:"required"`
			Periods    []int             `json:"periods" binding:"required"`
			Subject    string            `json:"subject"`
			Class      string            `json:"class"`
			GlobalNote string            `json:"global_note"`
			Marks      []attendance.Mark `json:"marks" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		meta := attendance.SessionMetadata{
			Periods:    req.Periods,
			Label:      attendance.FormatLabel(req.Periods, time.Now()),
			Subject:    req.Subject,
			Class:      req.Class,
			GlobalNote: req.GlobalNote,
		}
		inserted, err := rc.CommitSession(c.Request.Context(), userID, req.Date, meta, req.Marks)
		if err != nil {
			respondReconcilerError(c, err)
			return
		}
		if err := q.Publish(c.Request.Context(), queue.SessionCommitted{UserID: userID, Date: req.Date}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
		c.JSON(http.StatusCreated, gin.H{"records": inserted, "timestamp": meta.Label})
	})

	authGroup.PUT("/sessions", func(c *gin.Context) {
		userID := auth.UserID(c)
		var req struct {
			Date       string            `json:"date" binding:"required"`
			Timestamp  string            `json:"timestamp" binding:"required"`
			Subject    string            `json:"subject"`
			Class      string            `json:"class"`
			GlobalNote string            `json:"global_note"`
			Marks      []attendance.Mark `json:"marks" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		key := attendance.SessionKey{Date: req.Date, Label: req.Timestamp}
		meta := attendance.SessionMetadata{Subject: req.Subject, Class: req.Class, GlobalNote: req.GlobalNote}
		inserted, err := rc.EditSession(c.Request.Context(), userID, key, meta, req.Marks)
		if err != nil {
			respondReconcilerError(c, err)
			return
		}
		if err := q.Publish(c.Request.Context(), queue.SessionCommitted{UserID: userID, Date: req.Date}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"records": inserted, "timestamp": key.Label})
	})

	authGroup.DELETE("/sessions", func(c *gin.Context) {
		userID := auth.UserID(c)
		date, label := c.Query("date"), c.Query("timestamp")
		if date == "" || label == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date and timestamp required"})
			return
		}
		if err := rc.DeleteSession(c.Request.Context(), userID, attendance.SessionKey{Date: date, Label: label}); err != nil {
			respondReconcilerError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	authGroup.DELETE("/folders/:date", func(c *gin.Context) {
		userID := auth.UserID(c)
		if err := rc.DeleteFolder(c.Request.Context(), userID, c.Param("date")); err != nil {
			respondReconcilerError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	authGroup.GET("/history", func(c *gin.Context) {
		userID := auth.UserID(c)
		records := rc.Records(userID)
		folders := attendance.GroupByFolder(records)

		dates := make([]string, 0, len(folders))
		for date := range folders {
			dates = append(dates, date)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))

		type sessionInfo struct {
			Timestamp string `json:"timestamp"`
			Records   int    `json:"records"`
		}
		type folderInfo struct {
			Date     string        `json:"date"`
			Sessions []sessionInfo `json:"sessions"`
		}
		out := make([]folderInfo, 0, len(dates))
		for _, date := range dates {
			sessions := attendance.GroupBySession(folders[date])
			labels := make([]string, 0, len(sessions))
			for label := range sessions {
				labels = append(labels, label)
			}
			sort.Sort(sort.Reverse(sort.StringSlice(labels)))
			fi := folderInfo{Date: date}
			for _, label := range labels {
				fi.Sessions = append(fi.Sessions, sessionInfo{Timestamp: label, Records: len(sessions[label])})
			}
			out = append(out, fi)
		}
		c.JSON(http.StatusOK, gin.H{"folders": out})
	})

	authGroup.GET("/dashboard", func(c *gin.Context) {
		userID := auth.UserID(c)
		date := c.Query("date")
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		students, err := studentRepo.ListByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		records := rc.Records(userID)
		resp := gin.H{
			"date":       date,
			"totals":     attendance.Totals(records, date),
			"breakdown":  attendance.DepartmentBreakdown(roster.Entries(students), records, date, roster.Departments(students)),
			"recent":     attendance.RecentSessions(records, cfg.RecentSessions),
			"totalCount": len(students),
		}
		if summary, err := attRepo.GetDailySummary(c.Request.Context(), userID, date); err == nil && summary != nil {
			resp["summary"] = summary
		}
		c.JSON(http.StatusOK, resp)
	})

	// --- roster ---

	authGroup.GET("/students", func(c *gin.Context) {
		userID := auth.UserID(c)
		students, err := studentRepo.ListByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": roster.WithPercentages(students, rc.Records(userID))})
	})

	authGroup.POST("/students", func(c *gin.Context) {
		userID := auth.UserID(c)
		var req roster.Student
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.UserID = userID
		created, err := studentRepo.Insert(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	})

	authGroup.PUT("/students/:id", func(c *gin.Context) {
		userID := auth.UserID(c)
		var req roster.Student
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated, err := studentRepo.Update(c.Request.Context(), userID, c.Param("id"), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if updated == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	authGroup.DELETE("/students/:id", func(c *gin.Context) {
		userID := auth.UserID(c)
		id := c.Param("id")
		// Attendance first; the store does not cascade.
		if err := rc.RemoveStudentRecords(c.Request.Context(), userID, id); err != nil {
			respondReconcilerError(c, err)
			return
		}
		if err := studentRepo.Delete(c.Request.Context(), userID, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	authGroup.POST("/students/import", func(c *gin.Context) {
		userID := auth.UserID(c)
		contentType := c.ContentType()

		var result csvimport.Result
		var perr error
		switch {
		case strings.Contains(contentType, "multipart/form-data"):
			file, _, ferr := c.Request.FormFile("file")
			if ferr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
				return
			}
			defer file.Close()
			result, perr = csvimport.Parse(file)
		default:
			var body struct {
				Data string `json:"data" binding:"required"`
			}
			if berr := c.ShouldBindJSON(&body); berr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 CSV>\"}"})
				return
			}
			result, perr = csvimport.ParseBase64(body.Data)
		}
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		inserted, err := studentRepo.InsertBatch(c.Request.Context(), result.Students(userID))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"imported": len(inserted), "students": inserted, "errors": result.Errors})
	})

	// --- day notes ---

	authGroup.GET("/daynotes", func(c *gin.Context) {
		list, err := noteRepo.ListByUser(c.Request.Context(), auth.UserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": list})
	})

	authGroup.POST("/daynotes", func(c *gin.Context) {
		var req notes.DayNote
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.UserID = auth.UserID(c)
		created, err := noteRepo.Insert(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	})

	authGroup.DELETE("/daynotes/:id", func(c *gin.Context) {
		if err := noteRepo.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	// --- leads ---

	authGroup.GET("/leads", func(c *gin.Context) {
		list, err := leadRepo.ListByUser(c.Request.Context(), auth.UserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leads": list})
	})

	authGroup.POST("/leads", func(c *gin.Context) {
		var req leads.Lead
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.UserID = auth.UserID(c)
		created, err := leadRepo.Insert(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	})

	authGroup.PUT("/leads/:id", func(c *gin.Context) {
		var req leads.Lead
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated, err := leadRepo.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if updated == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	authGroup.POST("/leads/:id/notes", func(c *gin.Context) {
		var req struct {
			Note string `json:"note" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated, err := leadRepo.AddNote(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Note)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if updated == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	authGroup.DELETE("/leads/:id", func(c *gin.Context) {
		if err := leadRepo.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	authGroup.POST("/leads/:id/followup", func(c *gin.Context) {
		userID := auth.UserID(c)
		lead, err := leadRepo.Get(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if lead == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		lastNote := ""
		if len(lead.Notes) > 0 {
			lastNote = lead.Notes[0]
		}
		msg, err := gen.LeadFollowup(c.Request.Context(), lead.Name, lead.Course, lastNote)
		if err != nil {
			log.Printf("lead followup generation failed: %v", err)
			msg = aiclient.FallbackMessage
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	})

	// --- assistant ---

	authGroup.POST("/assistant", func(c *gin.Context) {
		userID := auth.UserID(c)
		var req struct {
			Query string `json:"query" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		students, err := studentRepo.ListByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		today := time.Now().Format("2006-01-02")
		reply, err := gen.AssistantReply(c.Request.Context(), req.Query, today, students, rc.Records(userID))
		if err != nil {
			// Assistant failures are soft: serve the fallback, not a 5xx.
			log.Printf("assistant generation failed: %v", err)
			reply = aiclient.FallbackMessage
		}
		c.JSON(http.StatusOK, gin.H{"reply": reply})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// resumeSession re-enters the Authenticated lifecycle state for a user
// presenting a valid token after a process restart, when the in-memory
// state machine has forgotten them.
func resumeSession(lifecycle *auth.Lifecycle, rc *attendance.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserID(c)
		if userID != "" && lifecycle.State(userID) == auth.Unauthenticated {
			_ = lifecycle.Transition(userID, auth.Authenticating)
			if err := lifecycle.Transition(userID, auth.Authenticated); err == nil {
				if err := rc.Refresh(c.Request.Context(), userID); err != nil {
					log.Printf("record refresh on session resume failed: %v", err)
				}
			}
		}
		c.Next()
	}
}

func respondReconcilerError(c *gin.Context, err error) {
	if errors.Is(err, attendance.ErrNotAuthenticated) {
		c.JSON(http.StatusForbidden, gin.H{"error": "session not active"})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
