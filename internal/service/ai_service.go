package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/util"
	"strings"
	"time"
)

// GenerationRequest 一次文本生成调用
type GenerationRequest struct {
	System string
	Prompt string
	// JSON 要求模型只输出 JSON 对象
	JSON bool
}

// LessonModel 外部文本生成服务
type LessonModel interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Name() string
}

type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{config: cfg, client: &http.Client{}}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []AIChatMessage `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (s *AIService) Name() string {
	return s.config.Model
}

// Generate 调用配置的生成服务，单次调用受 timeout_seconds 约束
func (s *AIService) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if timeout := s.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		text string
		err  error
	)
	switch s.config.Provider {
	case util.ProviderGemini:
		text, err = s.generateGemini(ctx, req)
	default:
		text, err = s.generateOpenAI(ctx, req)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", util.ErrUpstream)
	}
	return text, nil
}

// Chat 单轮问答，用于技能描述这类纯文本生成
func (s *AIService) Chat(ctx context.Context, prompt string, background string) (string, error) {
	system := "You are a concise, encouraging learning coach."
	if background != "" {
		system = fmt.Sprintf("You are a learning coach. Use the following background when answering:\n\n%s", background)
	}
	return s.Generate(ctx, GenerationRequest{System: system, Prompt: prompt})
}

func (s *AIService) generateOpenAI(ctx context.Context, req GenerationRequest) (string, error) {
	messages := []AIChatMessage{}
	if req.System != "" {
		messages = append(messages, AIChatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, AIChatMessage{Role: "user", Content: req.Prompt})

	reqBody := ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: messages,
	}
	if req.JSON && s.config.JSONMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + s.config.APIKey}
	body, err := s.post(ctx, strings.TrimRight(s.config.BaseURL, "/")+"/chat/completions", headers, reqBody)
	if err != nil {
		return "", err
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", util.ErrUpstream, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%w: %s", util.ErrUpstream, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: AI returned no choices", util.ErrUpstream)
	}
	return result.Choices[0].Message.Content, nil
}

func (s *AIService) generateGemini(ctx context.Context, req GenerationRequest) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON && s.config.JSONMode {
		reqBody.GenerationConfig = map[string]interface{}{"responseMimeType": "application/json"}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(s.config.BaseURL, "/"),
		url.PathEscape(s.config.Model),
		url.QueryEscape(s.config.APIKey),
	)
	body, err := s.post(ctx, endpoint, nil, reqBody)
	if err != nil {
		return "", err
	}

	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", util.ErrUpstream, err)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: AI returned no candidates", util.ErrUpstream)
	}
	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (s *AIService) post(ctx context.Context, endpoint string, headers map[string]string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %s", util.ErrUpstream, time.Since(start).Round(time.Millisecond))
		}
		return nil, fmt.Errorf("%w: %v", util.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", util.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}
	return body, nil
}

// classifyStatus 401/403 和 429 为终止性错误，其余按上游故障处理
func classifyStatus(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: AI API error (status %d)", util.ErrGenerationAuth, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: AI API quota exceeded (status %d)", util.ErrRateLimited, status)
	default:
		return fmt.Errorf("%w: AI API error (status %d): %s", util.ErrUpstream, status, msg)
	}
}
