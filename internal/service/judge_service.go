package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"teamquest/internal/config"
	"teamquest/internal/model"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// JudgeService calls the Gemini API for photo verification, empathy scoring,
// text validation and infographic generation. A failed call is terminal for
// that attempt; the learner retries from the UI.
type JudgeService struct {
	config *config.AIConfig
	client *http.Client

	mu       sync.Mutex
	limiters map[string]map[int]*rate.Limiter // roomID -> teamID
}

// NewJudgeService creates a new judge service
func NewJudgeService(cfg *config.AIConfig) *JudgeService {
	return &JudgeService{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		limiters: make(map[string]map[int]*rate.Limiter),
	}
}

// Allow spends one unit of the team's AI request budget
func (s *JudgeService) Allow(roomID string, teamID int) error {
	s.mu.Lock()
	teams, ok := s.limiters[roomID]
	if !ok {
		teams = make(map[int]*rate.Limiter)
		s.limiters[roomID] = teams
	}
	lim, ok := teams[teamID]
	if !ok {
		perMinute := s.config.RatePerMinute
		if perMinute <= 0 {
			perMinute = 20
		}
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(s.config.Burst, 1))
		teams[teamID] = lim
	}
	s.mu.Unlock()

	if !lim.Allow() {
		return ErrRateLimited
	}
	return nil
}

// ForgetRoom drops the request budgets of every team in a room
func (s *JudgeService) ForgetRoom(roomID string) {
	s.mu.Lock()
	delete(s.limiters, roomID)
	s.mu.Unlock()
}

// VerifyPlant judges whether a photo shows what the round asked for
func (s *JudgeService) VerifyPlant(ctx context.Context, req *model.PlantCheckRequest) (*model.Judgement, error) {
	if req.ImageData == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidValue)
	}
	if !s.config.IsEnabled() {
		return &model.Judgement{Pass: true, Message: "Photo accepted."}, nil
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	parts := []geminiPart{
		{Text: buildPlantPrompt(req.Instructions)},
		{InlineData: &geminiInlineData{MimeType: mimeType, Data: req.ImageData}},
	}

	var result model.Judgement
	if err := s.generateJSON(ctx, s.config.Models.Vision, []geminiContent{{Role: "user", Parts: parts}}, &result); err != nil {
		return nil, err
	}
	if !result.Pass {
		return &result, fmt.Errorf("%w: %s", ErrValidationRejected, result.Message)
	}
	return &result, nil
}

// EmpathyChat replies in character and scores the learner's last message
func (s *JudgeService) EmpathyChat(ctx context.Context, req *model.EmpathyChatRequest) (*model.ChatJudgement, error) {
	if len(req.Turns) == 0 {
		return nil, fmt.Errorf("%w: conversation is empty", ErrInvalidValue)
	}
	if !s.config.IsEnabled() {
		return &model.ChatJudgement{Response: "I hear you. Tell me more.", EmpathyScore: 50, ScoreChange: 0}, nil
	}

	contents := []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildEmpathyPrompt(req.Scenario)}}}}
	for _, turn := range req.Turns {
		role := "user"
		if turn.Role == "model" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: turn.Text}}})
	}

	var result model.ChatJudgement
	if err := s.generateJSON(ctx, s.config.Models.Chat, contents, &result); err != nil {
		return nil, err
	}
	result.EmpathyScore = clamp(result.EmpathyScore, 0, 100)
	result.ScoreChange = clamp(result.ScoreChange, -10, 15)
	return &result, nil
}

// ValidateReport checks free-text fields (resolutions, reports) for substance
func (s *JudgeService) ValidateReport(ctx context.Context, req *model.ReportCheckRequest) (*model.Feedback, error) {
	if len(req.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to validate", ErrInvalidValue)
	}
	if !s.config.IsEnabled() {
		for name, v := range req.Fields {
			if strings.TrimSpace(v) == "" {
				fb := &model.Feedback{Pass: false, Feedback: fmt.Sprintf("%q is empty.", name)}
				return fb, fmt.Errorf("%w: %s", ErrValidationRejected, fb.Feedback)
			}
		}
		return &model.Feedback{Pass: true, Feedback: "Looks good."}, nil
	}

	prompt := buildReportPrompt(req.Kind, req.Fields)
	var result model.Feedback
	if err := s.generateJSON(ctx, s.config.Models.Validate, []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}, &result); err != nil {
		return nil, err
	}
	if !result.Pass {
		return &result, fmt.Errorf("%w: %s", ErrValidationRejected, result.Feedback)
	}
	return &result, nil
}

// GenerateInfographic asks the image model for an illustration. When the
// primary model errors or returns no image part, the fallback model is tried
// exactly once before giving up.
func (s *JudgeService) GenerateInfographic(ctx context.Context, req *model.InfographicRequest) (*model.ImageResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidValue)
	}
	if !s.config.IsEnabled() {
		res := &model.ImageResult{Success: false, Error: "image generation is not configured"}
		return res, fmt.Errorf("%w: %s", ErrGenerationFailed, res.Error)
	}

	img, err := s.generateImage(ctx, s.config.Models.Image, req.Prompt)
	if err == nil {
		return img, nil
	}
	log.Warn().Err(err).Str("model", s.config.Models.Image).Msg("primary image generation failed, trying fallback")

	img, err = s.generateImage(ctx, s.config.Models.ImageFallback, req.Prompt)
	if err == nil {
		return img, nil
	}
	res := &model.ImageResult{Success: false, Error: err.Error()}
	return res, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
}

func (s *JudgeService) generateImage(ctx context.Context, modelName, prompt string) (*model.ImageResult, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildInfographicPrompt(prompt)}}}},
		GenerationConfig: map[string]interface{}{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	}
	resp, err := s.callGemini(ctx, modelName, body)
	if err != nil {
		return nil, err
	}
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return &model.ImageResult{
					Success:   true,
					ImageData: p.InlineData.Data,
					MimeType:  p.InlineData.MimeType,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("no image part in response from %s", modelName)
}

// generateJSON asks for a JSON response and decodes the first text part into out
func (s *JudgeService) generateJSON(ctx context.Context, modelName string, contents []geminiContent, out interface{}) error {
	body := geminiRequest{
		Contents: contents,
		GenerationConfig: map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}
	resp, err := s.callGemini(ctx, modelName, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	text := resp.firstText()
	if text == "" {
		return fmt.Errorf("%w: empty response from Gemini", ErrJudgeUnavailable)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: malformed judgement: %v", ErrJudgeUnavailable, err)
	}
	return nil
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r *geminiResponse) firstText() string {
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

// callGemini makes a request to the Gemini API
func (s *JudgeService) callGemini(ctx context.Context, modelName string, body geminiRequest) (*geminiResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?key=%s", s.config.ModelEndpoint(modelName), s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini %s: HTTP %d: %s", modelName, resp.StatusCode, truncate(string(data), 200))
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Prompt builders
func buildPlantPrompt(instructions string) string {
	return fmt.Sprintf(`You are checking a photo submitted by a training team. Return ONLY valid JSON:
{"pass": true or false, "message": "one short sentence for the team"}

Task the team was given: %s
Pass the photo only if it clearly shows a real plant that matches the task.`, instructions)
}

func buildEmpathyPrompt(scenario string) string {
	return fmt.Sprintf(`You are role-playing a customer in this scenario: %s
Stay in character. After each learner message, return ONLY valid JSON:
{"response": "your in-character reply", "empathyScore": 0-100, "scoreChange": -10 to 15}
Score how well the learner's latest message acknowledged your feelings.`, scenario)
}

func buildReportPrompt(kind string, fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", name, fields[name]))
	}
	return fmt.Sprintf(`You are reviewing a team's %s. Return ONLY valid JSON:
{"pass": true or false, "feedback": "one or two sentences"}

Fail it if any field is empty, off-topic, or too vague to act on.
Fields:
%s`, kind, sb.String())
}

func buildInfographicPrompt(content string) string {
	return fmt.Sprintf("Create a clean, friendly infographic poster summarizing the following team reflection. Use short headings and simple icons.\n\n%s", content)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
