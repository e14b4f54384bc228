package provider

import (
	"context"
	"errors"
)

// ErrUnavailable 生成服务整体不可用（所有模型都被限流或失败）。
// 调用方必须走本地保底内容，绝不向批次外传播
var ErrUnavailable = errors.New("generation provider unavailable")

// CaptionRequest 文案生成的上下文
type CaptionRequest struct {
	DisplayName    string
	Archetype      string
	Tone           string
	Goal           string
	Category       string
	RecentCaptions []string // 最近至多 2 条旧文案，用来让模型避开重复
}

// CommentRequest 评论生成的上下文
type CommentRequest struct {
	Style            string   // 互动风格标签
	Tone             string
	PostCaption      string
	ImageDescription string   // 可选：视觉模型对帖子配图的描述
	ExistingComments []string // 至多 3 条已有评论
	Relationship     string   // 双方互动历史摘要
	ActorFocus       string   // 评论者近期关注点
	AuthorFocus      string   // 作者近期关注点
}

// Generator 外部生成服务抽象
// 每个方法都可能失败或超时；所有调用点必须自带确定性保底路径
type Generator interface {
	GenerateCaption(ctx context.Context, req CaptionRequest) (string, error)
	GenerateComment(ctx context.Context, req CommentRequest) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}
