package api

import (
	"bytes"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"coin-ledger/internal/reporting"
)

const defaultAuditRunsLimit = 20

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	account, err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAccountDTO(account))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	account, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAccountDTO(account))
}

// handleTransactions returns the enriched ledger. Any row whose identity
// cannot be reproduced fails the whole request.
func (s *Server) handleTransactions(c *gin.Context) {
	rows, err := s.query.FetchEnrichedTransactions(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionDTOs(rows))
}

func (s *Server) handleTransactionsCSV(c *gin.Context) {
	rows, err := s.query.FetchEnrichedTransactions(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := reporting.WriteTransactionsCSV(&buf, rows); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="transactions.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// handleAudit runs an audit. Divergences are part of a 200 response.
func (s *Server) handleAudit(c *gin.Context) {
	run, err := s.auditor.Run(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAuditRunDTO(run))
}

func (s *Server) handleAuditRuns(c *gin.Context) {
	limit := defaultAuditRunsLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.auditor.Recent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]auditRunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, newAuditRunDTO(run))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleReport(c *gin.Context) {
	report, err := s.generator.Generate(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(reporting.RenderMarkdown(report)))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string       `json:"status"`
	Uptime          string       `json:"uptime"`
	StartedAt       time.Time    `json:"started_at"`
	Clients         int          `json:"clients"`
	Coins           int          `json:"coins"`
	Transactions    int          `json:"transactions"`
	FeedSubscribers int64        `json:"feed_subscribers"`
	LastAudit       *auditRunDTO `json:"last_audit,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := s.query.Counts(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).Round(time.Second).String(),
		StartedAt:       s.started.UTC(),
		Clients:         counts.Clients,
		Coins:           counts.Coins,
		Transactions:    counts.Transactions,
		FeedSubscribers: s.subscribers.Load(),
	}

	runs, err := s.auditor.Recent(ctx, 1)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if len(runs) > 0 {
		last := newAuditRunDTO(runs[0])
		last.Divergences = nil
		resp.LastAudit = &last
	}

	c.JSON(http.StatusOK, resp)
}

// handleNoRoute serves the browser bundle. Extensionless paths fall back to
// index.html; unknown /api paths get a JSON 404.
func (s *Server) handleNoRoute(c *gin.Context) {
	urlPath := c.Request.URL.Path
	if urlPath == "/api" || strings.HasPrefix(urlPath, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
		return
	}
	if s.staticDir == "" || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		c.String(http.StatusNotFound, "File not found")
		return
	}

	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		clean = "/index.html"
	}

	file := filepath.Join(s.staticDir, filepath.FromSlash(clean))
	if !isFile(file) && path.Ext(clean) == "" {
		file = filepath.Join(s.staticDir, "index.html")
	}
	if !isFile(file) {
		c.String(http.StatusNotFound, "File not found")
		return
	}
	c.File(file)
}

func isFile(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}
