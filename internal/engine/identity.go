package engine

import (
	"Leadline/internal/pkg/consts"
	"strings"
)

// IdentityStrategy 身份解析命中的策略档位
type IdentityStrategy string

const (
	StrategyExplicit     IdentityStrategy = "explicit"
	StrategyFromKey      IdentityStrategy = "derivedFromKey"
	StrategyParticipants IdentityStrategy = "derivedFromParticipants"
	StrategyRawPayload   IdentityStrategy = "rawPayload"
	StrategyUnresolved   IdentityStrategy = "unresolved"
)

// RawRecord 来源行的身份相关字段，各来源（镜像行/消息行/推送事件）统一填充
type RawRecord struct {
	AccountID       string
	PeerID          string
	SenderID        string
	RecipientID     string
	ConversationKey string
	Direction       string
	RawPayload      map[string]interface{}
}

// Identity 解析产出的稳定三元组
type Identity struct {
	AccountID       string
	PeerID          string
	ConversationKey string
	Resolved        bool
	Strategy        IdentityStrategy
}

// IsPlaceholderPeer 对端 id 的已知占位形态
// 外部镜像行可能原样带入 "unknown" 之类的占位值，判定未解析时与空串同等对待
func IsPlaceholderPeer(id string) bool {
	if id == "" {
		return true
	}
	lower := strings.ToLower(id)
	return lower == "unknown" || lower == "null" || lower == "undefined" ||
		strings.HasPrefix(lower, "unknown_") || strings.HasPrefix(lower, "placeholder")
}

type peerExtractor func(s *Session, rec RawRecord) (string, IdentityStrategy)

// 解析级联按固定顺序执行，同一记录无论何时调用结果一致
var peerExtractors = []peerExtractor{
	// 1. 显式对端 id，且不是占位符
	func(s *Session, rec RawRecord) (string, IdentityStrategy) {
		if !IsPlaceholderPeer(rec.PeerID) && !s.IsSelf(rec.PeerID) {
			return rec.PeerID, StrategyExplicit
		}
		return "", ""
	},
	// 2. 会话键剥离账号前缀
	func(s *Session, rec RawRecord) (string, IdentityStrategy) {
		accountID := rec.AccountID
		if accountID == "" {
			accountID = s.AccountID
		}
		prefix := accountID + "_"
		if strings.HasPrefix(rec.ConversationKey, prefix) {
			peer := strings.TrimPrefix(rec.ConversationKey, prefix)
			if !IsPlaceholderPeer(peer) && !s.IsSelf(peer) {
				return peer, StrategyFromKey
			}
		}
		return "", ""
	},
	// 3. 发送方/接收方中与本账号不同的那一方
	func(s *Session, rec RawRecord) (string, IdentityStrategy) {
		for _, candidate := range []string{rec.SenderID, rec.RecipientID} {
			if !IsPlaceholderPeer(candidate) && !s.IsSelf(candidate) {
				return candidate, StrategyParticipants
			}
		}
		return "", ""
	},
}

// ResolveIdentity 由部分/不一致的来源行推导稳定三元组
// 解析出的 id 等于账号自身或命中占位形态时视为未解析，会话转只读
func (s *Session) ResolveIdentity(rec RawRecord) Identity {
	accountID := rec.AccountID
	if accountID == "" {
		accountID = s.AccountID
	}

	ident := Identity{
		AccountID: accountID,
		Strategy:  StrategyUnresolved,
	}

	for _, extract := range peerExtractors {
		if peer, strategy := extract(s, rec); peer != "" {
			ident.PeerID = peer
			ident.Strategy = strategy
			ident.Resolved = true
			break
		}
	}

	if rec.ConversationKey != "" {
		ident.ConversationKey = rec.ConversationKey
	} else if ident.Resolved {
		ident.ConversationKey = accountID + "_" + ident.PeerID
	}

	return ident
}

// InferDirection 方向推断级联：
// 显式字段 → 自身 id 集合匹配 → 对端 id 匹配 → 原始负载 → 空（未知）
func (s *Session) InferDirection(rec RawRecord, peerID string) string {
	if rec.Direction == consts.DirectionInbound || rec.Direction == consts.DirectionOutbound {
		return rec.Direction
	}

	if s.IsSelf(rec.SenderID) {
		return consts.DirectionOutbound
	}
	if s.IsSelf(rec.RecipientID) {
		return consts.DirectionInbound
	}

	if peerID != "" {
		if rec.SenderID == peerID {
			return consts.DirectionInbound
		}
		if rec.RecipientID == peerID {
			return consts.DirectionOutbound
		}
	}

	if rec.RawPayload != nil {
		if v, ok := rec.RawPayload["sender_id"].(string); ok && v != "" {
			if s.IsSelf(v) {
				return consts.DirectionOutbound
			}
			if v == peerID {
				return consts.DirectionInbound
			}
		}
		if v, ok := rec.RawPayload["recipient_id"].(string); ok && v != "" {
			if s.IsSelf(v) {
				return consts.DirectionInbound
			}
			if v == peerID {
				return consts.DirectionOutbound
			}
		}
	}

	return ""
}
