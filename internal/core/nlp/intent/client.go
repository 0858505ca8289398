package intent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"recipe-chatbot/internal/pkg/common"
)

// 次要意圖的最低保留機率
const alternativeFloor = 0.3

// Predictor 意圖分類介面
type Predictor interface {
	Predict(ctx context.Context, text string) (common.IntentPrediction, error)
	Ready(ctx context.Context) error
}

// Client 透過 HTTP 呼叫外部意圖分類模型伺服器
type Client struct {
	http *resty.Client
}

// predictRequest 分類請求
type predictRequest struct {
	Text string `json:"text"`
}

// predictResponse 模型伺服器回應
type predictResponse struct {
	Intent       string             `json:"intent"`
	Confidence   float64            `json:"confidence"`
	Alternatives map[string]float64 `json:"alternatives"`
}

// NewClient 建立意圖分類客戶端
func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return &Client{http: httpClient}
}

// Predict 對單一文字做意圖分類
func (c *Client) Predict(ctx context.Context, text string) (common.IntentPrediction, error) {
	var result predictResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(predictRequest{Text: text}).
		SetResult(&result).
		Post("/predict")
	if err != nil {
		return common.IntentPrediction{}, fmt.Errorf("intent predict request failed: %w", err)
	}
	if resp.IsError() {
		return common.IntentPrediction{}, fmt.Errorf("intent predict returned status %d", resp.StatusCode())
	}

	prediction := common.IntentPrediction{
		Primary:    result.Intent,
		Confidence: result.Confidence,
	}
	for intent, confidence := range result.Alternatives {
		if intent == result.Intent || confidence < alternativeFloor {
			continue
		}
		prediction.Alternatives = append(prediction.Alternatives, common.IntentScore{
			Intent:     intent,
			Confidence: confidence,
		})
	}
	// map 走訪順序不定，依信心度由高到低排序
	sort.Slice(prediction.Alternatives, func(i, j int) bool {
		if prediction.Alternatives[i].Confidence != prediction.Alternatives[j].Confidence {
			return prediction.Alternatives[i].Confidence > prediction.Alternatives[j].Confidence
		}
		return prediction.Alternatives[i].Intent < prediction.Alternatives[j].Intent
	})
	return prediction, nil
}

// Ready 確認模型伺服器可用
func (c *Client) Ready(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/ready")
	if err != nil {
		return common.ErrOracleNotReady
	}
	if resp.IsError() {
		return common.ErrOracleNotReady
	}
	return nil
}
