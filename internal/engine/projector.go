package engine

import (
	"Leadline/internal/model"
	"Leadline/internal/pkg/consts"
	mongorepo "Leadline/internal/pkg/mongo"
	"Leadline/internal/repository"
	"context"
	log "log/slog"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// CapabilityStore 列集降级档位的会话级持久化
type CapabilityStore interface {
	ColumnShape(ctx context.Context, workspaceID, operatorID uint64) (int, error)
	SaveColumnShape(ctx context.Context, workspaceID, operatorID uint64, shape int) error
}

// defaultColumnShapes 镜像表查询列集，由富到贫
// 旧库可能缺少后加的列，命中缺列错误时退到下一档
var defaultColumnShapes = [][]string{
	{
		"id", "workspace_id", "conversation_key", "account_id", "peer_id",
		"peer_display_name", "peer_avatar_url",
		"priority", "is_spam", "hidden_from_delegates", "shared_with_delegates",
		"lead_status", "assigned_operator_id",
		"priority_snoozed_until", "priority_followed_up_at",
		"summary_text", "summary_updated_at",
		"shared_last_read_at", "last_inbound_at", "last_outbound_at",
		"last_message_id", "last_message_text", "last_message_direction",
		"last_message_at", "last_message_raw_ts", "updated_at",
	},
	{
		"id", "workspace_id", "conversation_key", "account_id", "peer_id",
		"peer_display_name", "peer_avatar_url",
		"priority", "is_spam", "hidden_from_delegates", "shared_with_delegates",
		"lead_status", "assigned_operator_id",
		"shared_last_read_at", "last_inbound_at", "last_outbound_at",
		"last_message_id", "last_message_text", "last_message_direction",
		"last_message_at", "last_message_raw_ts", "updated_at",
	},
	{
		"id", "workspace_id", "conversation_key", "account_id", "peer_id",
		"last_message_id", "last_message_text", "last_message_direction",
		"last_message_at", "last_message_raw_ts", "updated_at",
	},
}

// Projector 线程投影构建：镜像表为主路径，消息行兜底合成
type Projector struct {
	threads    repository.ThreadRepo
	messages   mongorepo.MessageRepo
	caps       CapabilityStore
	shapes     [][]string
	pageSize   int
	rowCeiling int
	probeLimit int
}

func NewProjector(threads repository.ThreadRepo, messages mongorepo.MessageRepo, caps CapabilityStore,
	shapes [][]string, pageSize, rowCeiling, probeLimit int) *Projector {
	if len(shapes) == 0 {
		shapes = defaultColumnShapes
	}
	return &Projector{
		threads:    threads,
		messages:   messages,
		caps:       caps,
		shapes:     shapes,
		pageSize:   pageSize,
		rowCeiling: rowCeiling,
		probeLimit: probeLimit,
	}
}

// missingColumnErr 仅缺列（ER_BAD_FIELD_ERROR）触发降档，其他错误照常上抛
func missingColumnErr(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1054
}

// LoadWorkspace 构建工作区的完整线程集
// 主路径按当前列集档位分页读镜像表，缺列则降档并持久化；
// 镜像表为空时从最近消息行直接合成
func (p *Projector) LoadWorkspace(ctx context.Context, s *Session) ([]*model.Thread, error) {
	rows, err := p.loadMirror(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		rows, err = p.synthesizeFromMessages(ctx, s)
		if err != nil {
			return nil, err
		}
	}
	return dedupeByRecency(rows), nil
}

func (p *Projector) loadMirror(ctx context.Context, s *Session) ([]*model.Thread, error) {
	for shape := s.ColumnShape(); shape < len(p.shapes); shape++ {
		rows, err := p.loadMirrorShape(ctx, s.WorkspaceID, p.shapes[shape])
		if err == nil {
			if shape != s.ColumnShape() {
				s.DowngradeColumnShape(shape)
				if p.caps != nil {
					if saveErr := p.caps.SaveColumnShape(ctx, s.WorkspaceID, s.OperatorID, shape); saveErr != nil {
						log.WarnContext(ctx, "persist column shape failed", "shape", shape, "err", saveErr)
					}
				}
			}
			return rows, nil
		}
		if !missingColumnErr(err) {
			return nil, err
		}
		log.WarnContext(ctx, "thread mirror column missing, fallback to leaner shape",
			"workspace_id", s.WorkspaceID, "shape", shape, "err", err)
	}
	return nil, errors.New("all thread column shapes exhausted")
}

func (p *Projector) loadMirrorShape(ctx context.Context, workspaceID uint64, columns []string) ([]*model.Thread, error) {
	var all []*model.Thread
	for offset := 0; offset < p.rowCeiling; offset += p.pageSize {
		limit := p.pageSize
		if remain := p.rowCeiling - offset; remain < limit {
			limit = remain
		}
		page, err := p.threads.ListPage(ctx, workspaceID, columns, offset, limit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < limit {
			break
		}
	}
	return all, nil
}

// synthesizeFromMessages 兜底路径：按解析后的会话键分组，每组留最新一条消息
func (p *Projector) synthesizeFromMessages(ctx context.Context, s *Session) ([]*model.Thread, error) {
	msgs, err := p.messages.FindRecent(ctx, s.WorkspaceID, p.probeLimit)
	if err != nil {
		return nil, err
	}

	type group struct {
		ident  Identity
		newest *mongorepo.Message
		at     int64
	}
	groups := make(map[string]*group)
	var order []string

	for _, m := range msgs {
		if !Renderable(m) {
			continue
		}
		ident := s.ResolveIdentity(RawRecord{
			AccountID:       m.AccountID,
			PeerID:          m.PeerID,
			SenderID:        m.SenderID,
			RecipientID:     m.RecipientID,
			ConversationKey: m.ConversationKey,
			Direction:       m.Direction,
			RawPayload:      m.RawPayload,
		})
		if ident.ConversationKey == "" {
			continue
		}
		at := MessageAt(m)
		g, ok := groups[ident.ConversationKey]
		if !ok {
			groups[ident.ConversationKey] = &group{ident: ident, newest: m, at: at}
			order = append(order, ident.ConversationKey)
			continue
		}
		if at > g.at {
			g.newest, g.at = m, at
		}
	}

	rows := make([]*model.Thread, 0, len(order))
	for _, key := range order {
		g := groups[key]
		rows = append(rows, p.threadFromMessage(s, g.ident, g.newest))
	}
	log.InfoContext(ctx, "thread mirror empty, synthesized from messages",
		"workspace_id", s.WorkspaceID, "threads", len(rows), "scanned", len(msgs))
	return rows, nil
}

func (p *Projector) threadFromMessage(s *Session, ident Identity, m *mongorepo.Message) *model.Thread {
	t := &model.Thread{
		WorkspaceID:      s.WorkspaceID,
		ConversationKey:  ident.ConversationKey,
		AccountID:        ident.AccountID,
		PeerID:           ident.PeerID,
		LastMessageID:    m.ProviderMsgID,
		LastMessageText:  m.Text,
		LastMessageRawTs: m.RawProviderTs,
	}
	if at := MessageAt(m); at > 0 {
		ts := time.UnixMilli(at)
		t.LastMessageAt = &ts
	}
	direction := s.InferDirection(RawRecord{
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Direction:   m.Direction,
		RawPayload:  m.RawPayload,
	}, ident.PeerID)
	t.LastMessageDirection = direction
	switch direction {
	case consts.DirectionInbound:
		t.LastInboundAt = t.LastMessageAt
	case consts.DirectionOutbound:
		t.LastOutboundAt = t.LastMessageAt
	}
	return t
}

// dedupeByRecency 先按最近活跃倒序稳定排序，再按会话键保留首个出现的行
func dedupeByRecency(rows []*model.Thread) []*model.Thread {
	sort.SliceStable(rows, func(i, j int) bool {
		return ThreadActivityAt(rows[i].LastMessageAt, rows[i].LastMessageRawTs) >
			ThreadActivityAt(rows[j].LastMessageAt, rows[j].LastMessageRawTs)
	})
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		if row.ConversationKey == "" {
			continue
		}
		if _, dup := seen[row.ConversationKey]; dup {
			continue
		}
		seen[row.ConversationKey] = struct{}{}
		out = append(out, row)
	}
	return out
}
