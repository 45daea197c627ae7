package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"idscan/models"
	"idscan/pkg/ocr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"
)

// multipartOverhead is allowed on top of MAX_UPLOAD_MB for form boundaries and headers.
const multipartOverhead = 1 << 20

// pipelineSlots limits concurrent OCR runs to OCR_WORKERS.
var pipelineSlots = semaphore.NewWeighted(int64(ocrWorkers()))

func setupRoutes(r *gin.Engine) {
	r.GET("/healthz", healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/upload", uploadDocumentHandler)
	authGroup.POST("/extract", extractTextHandler)
	authGroup.GET("/documents", listDocumentsHandler)
	authGroup.GET("/documents/:id", getDocumentHandler)
	authGroup.DELETE("/documents/:id", deleteDocumentHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) < 8 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func healthHandler(c *gin.Context) {
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func meHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "role": c.GetString("role")})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	uname := c.GetString("username")
	if uname == "" {
		return nil, false
	}
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func isAdmin(c *gin.Context) bool {
	return c.GetString("role") == models.RoleAdministrator
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := issueAccessToken(user, loginTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || !rt.Usable(time.Now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	tokenString, err := issueAccessToken(user, refreshTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

// uploadDocumentHandler stores an uploaded document image, runs the OCR pipeline
// on it and persists the extracted fields.
func uploadDocumentHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	limit := maxUploadBytes()
	tooLarge := gin.H{"error": fmt.Sprintf("file too large (max %dMB)", limit>>20)}
	if c.Request.ContentLength > limit+multipartOverhead {
		c.JSON(http.StatusRequestEntityTooLarge, tooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	file, err := c.FormFile("document")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			c.JSON(http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, tooLarge)
		return
	}
	userDir := fmt.Sprintf("%d", user.ID)
	relPath := filepath.ToSlash(filepath.Join(userDir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename))))
	fullPath := filepath.Join(uploadBaseDir(), relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	up := models.Upload{
		UserID:      user.ID,
		FileName:    filepath.Base(file.Filename),
		StorePath:   relPath,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
	}
	if err := db.Create(&up).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		return
	}
	res, err := runPipeline(c.Request.Context(), raw)
	if err != nil {
		status, msg, outcome := pipelineFailure(err)
		documentsProcessed.WithLabelValues(outcome).Inc()
		log.Printf("OCR failed upload=%d file=%s: %v", up.ID, up.FileName, err)
		markUploadFailed(&up, msg)
		c.JSON(status, gin.H{"error": msg, "upload_id": up.ID})
		return
	}
	documentsProcessed.WithLabelValues(outcomeOK).Inc()
	observeRecord(res.Record)

	doc := models.Document{UserID: user.ID, UploadID: &up.ID, RawText: res.Text}
	doc.ApplyRecord(res.Record)
	if err := db.Create(&doc).Error; err != nil {
		log.Printf("ERROR store document upload=%d: %v", up.ID, err)
		markUploadFailed(&up, "could not store extracted fields")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed", "upload_id": up.ID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": doc.ID, "upload_id": up.ID, "fields": res.Record})
}

// runPipeline runs OCR under the configured timeout. On timeout the OCR call
// keeps running in the background and its result is dropped; it holds its
// pipelineSlots slot until it returns, so abandoned runs are bounded too.
func runPipeline(ctx context.Context, raw []byte) (ocr.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, ocrTimeout())
	defer cancel()
	sem := pipelineSlots
	if err := sem.Acquire(ctx, 1); err != nil {
		return ocr.Result{}, err
	}
	type outcome struct {
		res ocr.Result
		err error
	}
	done := make(chan outcome, 1)
	rec := recognizer
	start := time.Now()
	go func() {
		defer sem.Release(1)
		res, err := ocr.Process(raw, rec)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		pipelineDuration.Observe(time.Since(start).Seconds())
		return o.res, o.err
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	}
}

// pipelineFailure maps a pipeline error to an HTTP status, a client message and a metric outcome.
func pipelineFailure(err error) (int, string, string) {
	var de *ocr.DecodeError
	switch {
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity, "uploaded file is not a readable image", outcomeDecodeError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "ocr timed out", outcomeTimeout
	default:
		return http.StatusBadGateway, "ocr failed", outcomeOCRError
	}
}

func markUploadFailed(up *models.Upload, reason string) {
	up.Failed = true
	up.FailedReason = reason
	if err := db.Save(up).Error; err != nil {
		log.Printf("WARN failed to mark upload %d failed: %v", up.ID, err)
	}
}

// extractTextHandler runs field extraction on text that was recognized elsewhere.
func extractTextHandler(c *gin.Context) {
	var req struct {
		Text *string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": ocr.Extract(*req.Text)})
}

// listDocumentsHandler returns documents; admin sees all, users only their own.
func listDocumentsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var docs []models.Document
	q := db.Model(&models.Document{})
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(200).Find(&docs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, docs)
}

// loadOwnedDocument fetches :id and enforces owner-or-admin access, writing the
// error response itself when it returns false.
func loadOwnedDocument(c *gin.Context) (*models.Document, bool) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	var doc models.Document
	if err := db.First(&doc, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	if !isAdmin(c) && doc.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &doc, true
}

func getDocumentHandler(c *gin.Context) {
	doc, ok := loadOwnedDocument(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, doc)
}

func deleteDocumentHandler(c *gin.Context) {
	doc, ok := loadOwnedDocument(c)
	if !ok {
		return
	}
	if err := db.Delete(doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted", "id": doc.ID})
}
