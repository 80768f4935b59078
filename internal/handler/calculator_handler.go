package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firmsite/internal/calculator/cashflow"
	"github.com/firmsite/internal/calculator/rdcredit"
)

// CashFlowProjection 计算现金流预测，公开接口。
func (a *API) CashFlowProjection(c *gin.Context) {
	var cfg cashflow.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondError(c, http.StatusBadRequest, "invalid cash flow payload")
		return
	}
	report, err := cashflow.Project(cfg)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// RDCreditEstimate 估算研发税收抵免。
func (a *API) RDCreditEstimate(c *gin.Context) {
	var in rdcredit.Inputs
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid rd credit payload")
		return
	}
	estimate, err := rdcredit.Calculate(in)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"estimate": estimate})
}

// RDCreditQualify 根据问卷判断研发活动是否符合条件。
func (a *API) RDCreditQualify(c *gin.Context) {
	var answers rdcredit.Answers
	if err := c.ShouldBindJSON(&answers); err != nil {
		respondError(c, http.StatusBadRequest, "invalid questionnaire payload")
		return
	}
	c.JSON(http.StatusOK, gin.H{"qualification": rdcredit.Qualify(answers)})
}
