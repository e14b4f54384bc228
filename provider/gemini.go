package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// modelConfig 单个模型及其速率预算（每分钟/每日请求数）
type modelConfig struct {
	Name string
	RPM  int
	RPD  int
}

// GeminiGenerator 基于 Gemini 的生成服务实现。
// 文本模型按顺序降级：首选模型被限流（429/404/quota exhausted）时自动切到下一个；
// 预算计数在进程内维护，跨日/跨分钟自动清零
type GeminiGenerator struct {
	client     *genai.Client
	textModels []modelConfig
	imageModel string

	dailyCount   map[string]int
	minuteCount  map[string]int
	lastResetDay time.Time
	lastResetMin time.Time
	mu           sync.Mutex
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator 创建 Gemini 客户端
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}

	return &GeminiGenerator{
		client: client,
		textModels: []modelConfig{
			{Name: "gemini-2.5-flash", RPM: 10, RPD: 250},
			{Name: "gemini-2.5-flash-lite", RPM: 15, RPD: 1000},
		},
		imageModel:   "imagen-3.0-generate-002",
		dailyCount:   make(map[string]int),
		minuteCount:  make(map[string]int),
		lastResetDay: time.Now(),
		lastResetMin: time.Now(),
	}, nil
}

// GenerateCaption 生成帖子文案
func (g *GeminiGenerator) GenerateCaption(ctx context.Context, req CaptionRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `You are %s, a %s persona on SnapConnect, a fitness social app.
Your tone is %s. Your current goal: %s.

Write a short, natural social media caption (1-2 sentences, at most one emoji) for a new post in the %q category. Sound like a real person, not an ad.`,
		req.DisplayName, req.Archetype, req.Tone, req.Goal, req.Category)
	if len(req.RecentCaptions) > 0 {
		b.WriteString("\n\nYour recent captions were:\n")
		for _, c := range req.RecentCaptions {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("Do not repeat their wording or structure.")
	}
	b.WriteString("\nOutput only the caption text, no quotes.")

	return g.generateText(ctx, b.String())
}

// GenerateComment 生成上下文相关的评论
func (g *GeminiGenerator) GenerateComment(ctx context.Context, req CommentRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a fitness app user with a %s engagement style and a %s tone.
Write a short comment (1 sentence, casual, at most one emoji) on this post:

Caption: %s`, req.Style, req.Tone, req.PostCaption)
	if req.ImageDescription != "" {
		fmt.Fprintf(&b, "\nThe photo shows: %s", req.ImageDescription)
	}
	if len(req.ExistingComments) > 0 {
		b.WriteString("\nExisting comments:\n")
		for _, c := range req.ExistingComments {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if req.Relationship != "" {
		fmt.Fprintf(&b, "\nYour history with the author: %s", req.Relationship)
	}
	if req.ActorFocus != "" {
		fmt.Fprintf(&b, "\nYou have been focused on: %s", req.ActorFocus)
	}
	if req.AuthorFocus != "" {
		fmt.Fprintf(&b, "\nThe author has been focused on: %s", req.AuthorFocus)
	}
	b.WriteString("\nOutput only the comment text, no quotes.")

	return g.generateText(ctx, b.String())
}

// GenerateImage 生成配图，返回图片字节
func (g *GeminiGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	cfg := modelConfig{Name: g.imageModel, RPM: 5, RPD: 50}
	if !g.canUseModel(cfg) {
		return nil, fmt.Errorf("%w: image budget exhausted", ErrUnavailable)
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("%w: empty image response", ErrUnavailable)
	}
	g.recordUsage(cfg)
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// DescribeImage 视觉调用：下载帖子配图并让模型描述画面，供评论上下文使用
func (g *GeminiGenerator) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	data, mimeType, err := fetchImage(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var lastErr error
	for _, cfg := range g.textModels {
		if !g.canUseModel(cfg) {
			continue
		}
		parts := []*genai.Part{
			genai.NewPartFromText("Describe what this fitness photo shows in one short sentence."),
			genai.NewPartFromBytes(data, mimeType),
		}
		contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
		result, err := g.client.Models.GenerateContent(ctx, cfg.Name, contents, nil)
		if err != nil {
			if isRetriable(err) {
				lastErr = err
				continue
			}
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if text := firstText(result); text != "" {
			g.recordUsage(cfg)
			return strings.TrimSpace(text), nil
		}
	}
	return "", fmt.Errorf("%w: all models failed: %v", ErrUnavailable, lastErr)
}

// generateText 带模型降级的文本生成
func (g *GeminiGenerator) generateText(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, cfg := range g.textModels {
		if !g.canUseModel(cfg) {
			continue
		}
		result, err := g.client.Models.GenerateContent(ctx, cfg.Name, genai.Text(prompt), nil)
		if err != nil {
			if isRetriable(err) {
				lastErr = err
				continue
			}
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if text := firstText(result); text != "" {
			g.recordUsage(cfg)
			return strings.TrimSpace(text), nil
		}
	}
	return "", fmt.Errorf("%w: all models failed: %v", ErrUnavailable, lastErr)
}

func firstText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	c := result.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return ""
	}
	return c.Content.Parts[0].Text
}

// isRetriable 限流/配额/模型不存在这类错误换下一个模型重试，其它错误直接返回
func isRetriable(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "exhausted") ||
		strings.Contains(s, "404") ||
		strings.Contains(s, "not found")
}

func (g *GeminiGenerator) canUseModel(cfg modelConfig) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if now.YearDay() != g.lastResetDay.YearDay() {
		g.dailyCount = make(map[string]int)
		g.lastResetDay = now
	}
	if now.Sub(g.lastResetMin) >= time.Minute {
		g.minuteCount = make(map[string]int)
		g.lastResetMin = now
	}
	if g.dailyCount[cfg.Name] >= cfg.RPD {
		return false
	}
	if g.minuteCount[cfg.Name] >= cfg.RPM {
		return false
	}
	return true
}

func (g *GeminiGenerator) recordUsage(cfg modelConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyCount[cfg.Name]++
	g.minuteCount[cfg.Name]++
}

func fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, "", err
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}
