package provider

import (
	"Leadline/internal/api/config"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/redis"
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Client 外部私信平台网关的黑盒 RPC 封装
// 发送/取数之外的平台语义（分组、身份、时间戳形态）由对账引擎兜底
type Client struct {
	http *resty.Client
}

// SendResult 平台确认的消息回执
type SendResult struct {
	ProviderMsgID string `json:"msg_id"`
	Timestamp     int64  `json:"timestamp"` // 平台原始时间戳，秒或毫秒不定
}

// ConversationPage 批量拉取的一页会话
type ConversationPage struct {
	Conversations []ProviderConversation `json:"conversations"`
	NextCursor    string                 `json:"next_cursor"`
}

// ProviderConversation 平台侧会话摘要，字段形态不受控
type ProviderConversation struct {
	ConversationKey string                 `json:"conversation_key"`
	AccountID       string                 `json:"account_id"`
	PeerID          string                 `json:"peer_id"`
	PeerDisplayName string                 `json:"peer_display_name"`
	PeerAvatarURL   string                 `json:"peer_avatar_url"`
	LastMessage     map[string]interface{} `json:"last_message"`
	UpdatedAt       interface{}            `json:"updated_at"` // 秒/毫秒/ISO 串都可能出现
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewClient() *Client {
	cfg := config.Cfg.Provider
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.Token).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: client}
}

// SendText 发文本消息，replyTo 可空
// localClientID 做发送幂等键：同键重试不会在平台侧产生第二条消息
func (c *Client) SendText(ctx context.Context, accountID, peerID, text, replyTo, localClientID string) (*SendResult, error) {
	if dup, err := c.dedupe(ctx, localClientID); err == nil && dup {
		return nil, errors.New("duplicate send suppressed")
	}
	body := map[string]string{
		"account_id": accountID,
		"peer_id":    peerID,
		"text":       text,
		"client_id":  localClientID,
	}
	if replyTo != "" {
		body["reply_to"] = replyTo
	}
	var result struct {
		envelope
		Data SendResult `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/v1/messages/text")
	if err := c.check(resp, err, result.envelope); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// SendMedia 发媒体消息，mediaURL 为已上传完成的对象地址
func (c *Client) SendMedia(ctx context.Context, accountID, peerID, mediaURL, mimeType, localClientID string) (*SendResult, error) {
	if dup, err := c.dedupe(ctx, localClientID); err == nil && dup {
		return nil, errors.New("duplicate send suppressed")
	}
	var result struct {
		envelope
		Data SendResult `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"account_id": accountID,
			"peer_id":    peerID,
			"media_url":  mediaURL,
			"mime_type":  mimeType,
			"client_id":  localClientID,
		}).
		SetResult(&result).
		Post("/v1/messages/media")
	if err := c.check(resp, err, result.envelope); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// React 对一条消息追加/撤销表情回应
func (c *Client) React(ctx context.Context, accountID, providerMsgID, emoji string) error {
	var result envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"account_id": accountID,
			"msg_id":     providerMsgID,
			"emoji":      emoji,
		}).
		SetResult(&result).
		Post("/v1/messages/react")
	return c.check(resp, err, result)
}

// FetchConversationsPage 批量拉一页会话摘要，cursor 为空表示从头
func (c *Client) FetchConversationsPage(ctx context.Context, accountID, cursor string, limit int) (*ConversationPage, error) {
	var result struct {
		envelope
		Data ConversationPage `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"account_id": accountID,
			"cursor":     cursor,
			"limit":      fmt.Sprintf("%d", limit),
		}).
		SetResult(&result).
		Get("/v1/conversations")
	if err := c.check(resp, err, result.envelope); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func (c *Client) check(resp *resty.Response, err error, env envelope) error {
	if err != nil {
		return errors.Wrap(err, "provider request failed")
	}
	if resp.IsError() {
		return errors.Errorf("provider http %d: %s", resp.StatusCode(), resp.String())
	}
	if env.Code != 0 {
		return errors.Errorf("provider code %d: %s", env.Code, env.Message)
	}
	return nil
}

// dedupe 幂等去重：同一 client_id 短期内只放行一次
func (c *Client) dedupe(ctx context.Context, localClientID string) (bool, error) {
	if localClientID == "" {
		return false, nil
	}
	ok, err := redis.GetRdbClient().SetNX(ctx, consts.ProviderSendDedupeKey+localClientID, 1, 5*time.Minute).Result()
	if err != nil {
		log.WarnContext(ctx, "send dedupe check failed", "err", err)
		return false, err
	}
	return !ok, nil
}
