package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tilbakedomain "github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
)

func (s *Server) GetRepaymentCase(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.repayments.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRepaymentCaseAudit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.repayments.AuditTrail(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type saveAssessmentRequest struct {
	Assessment      tilbakedomain.Assessment `json:"assessment"`
	ExpectedVersion int                      `json:"expected_version"`
}

func (s *Server) SaveAssessment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req saveAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.repayments.SaveAssessment(c.Request.Context(), tilbakedomain.SaveAssessmentRequest{
		CaseID:          id,
		Assessment:      req.Assessment,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type savePeriodsRequest struct {
	Lines           []tilbakedomain.LineAssessment `json:"lines"`
	ExpectedVersion int                            `json:"expected_version"`
}

func (s *Server) SavePeriods(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req savePeriodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.repayments.SavePeriods(c.Request.Context(), tilbakedomain.SavePeriodsRequest{
		CaseID:          id,
		Lines:           req.Lines,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setNetOverrideRequest struct {
	Enabled         bool `json:"enabled"`
	ExpectedVersion int  `json:"expected_version"`
}

func (s *Server) SetNetOverride(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setNetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.repayments.SetNetOverride(c.Request.Context(), tilbakedomain.SetNetOverrideRequest{
		CaseID:          id,
		Enabled:         req.Enabled,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type decideRequest struct {
	PreparerIdent   string `json:"preparer_ident"`
	ExpectedVersion int    `json:"expected_version"`
}

func (s *Server) Decide(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.PreparerIdent) == "" {
		AbortWithError(c, newValidationError("preparer_ident", "required", "preparer_ident is required"))
		return
	}

	resp, err := s.repayments.Decide(c.Request.Context(), tilbakedomain.DecideRequest{
		CaseID:          id,
		PreparerIdent:   strings.TrimSpace(req.PreparerIdent),
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Submit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.repayments.Submit(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"case":     resp.Case,
		"severity": resp.Severity.String(),
	}})
}

type rejectRequest struct {
	ExpectedVersion int `json:"expected_version"`
}

func (s *Server) Reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.repayments.Reject(c.Request.Context(), id, req.ExpectedVersion)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RefreshClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.repayments.RefreshClaim(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
