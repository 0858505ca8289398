package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-chatbot/internal/core/conversation"
	"recipe-chatbot/internal/pkg/common"
)

// ChatRequest 單一對話訊息
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message" binding:"required"`
}

// getService 從 gin context 取得對話服務
func getService(c *gin.Context) (*conversation.Service, bool) {
	value, exists := c.Get("conversation_service")
	if !exists {
		common.LogError("Conversation service not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Conversation service not found",
		})
		return nil, false
	}
	svc, ok := value.(*conversation.Service)
	if !ok {
		common.LogError("Invalid conversation service type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid conversation service type",
		})
		return nil, false
	}
	return svc, true
}

// Chat 處理一則使用者訊息並回傳決策與推薦
func Chat(c *gin.Context) {
	svc, ok := getService(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "message is required",
		})
		return
	}

	// 未帶 user_id 時視為匿名的一次性會話
	if req.UserID == "" {
		req.UserID = "anon-" + common.GenerateUUID()
	}

	response, err := svc.ProcessTurn(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		common.LogError("對話回合處理失敗",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to process message",
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// History 回傳使用者的對話記錄
func History(c *gin.Context) {
	svc, ok := getService(c)
	if !ok {
		return
	}

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id is required",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"history": svc.History(userID),
	})
}

// Clear 清空使用者的對話狀態
func Clear(c *gin.Context) {
	svc, ok := getService(c)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id is required",
		})
		return
	}

	message := svc.Clear(req.UserID)
	c.JSON(http.StatusOK, gin.H{
		"user_id": req.UserID,
		"message": message,
	})
}
