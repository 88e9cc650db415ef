package service

import (
	"Leadline/internal/api/config"
	"Leadline/internal/api/dto"
	"Leadline/internal/engine"
	"Leadline/internal/model"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/es"
	"Leadline/internal/pkg/minio"
	"Leadline/internal/pkg/mongo"
	"Leadline/internal/pkg/provider"
	"Leadline/internal/pkg/security"
	"Leadline/internal/repository"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// InboxService 收件箱服务接口定义
// 所有操作都以活跃引擎实例为前提：连接时 OpenSession 装配，断开时 CloseSession 整体丢弃
type InboxService interface {
	OpenSession(ctx context.Context, claims *security.OperatorClaims) error
	CloseSession(workspaceID, operatorID uint64)
	ListThreads(ctx context.Context, workspaceID, operatorID uint64, delegate bool) ([]*dto.ThreadDTO, error)
	SelectThread(ctx context.Context, workspaceID, operatorID uint64, conversationKey string) (*dto.ThreadMessagesDTO, error)
	SendText(ctx context.Context, workspaceID, operatorID uint64, req *dto.SendTextReq) (*dto.MessageDTO, error)
	SendMedia(ctx context.Context, workspaceID, operatorID uint64, req *dto.SendMediaReq) (*dto.MessageDTO, error)
	React(ctx context.Context, workspaceID, operatorID uint64, req *dto.ReactReq) error
	MarkRead(ctx context.Context, workspaceID, operatorID uint64, req *dto.MarkReadReq) error
	SetPriority(ctx context.Context, workspaceID, operatorID uint64, req *dto.PriorityThreadReq) error
	SetSpam(ctx context.Context, workspaceID, operatorID uint64, req *dto.SpamThreadReq) error
	SetVisibility(ctx context.Context, workspaceID, operatorID uint64, req *dto.VisibilityThreadReq) error
	Snooze(ctx context.Context, workspaceID, operatorID uint64, req *dto.SnoozeThreadReq) error
	Assign(ctx context.Context, workspaceID, operatorID uint64, req *dto.AssignThreadReq) error
	SearchThreads(ctx context.Context, workspaceID uint64, req *dto.SearchThreadsReq) ([]*dto.ThreadDTO, error)
	Refresh(workspaceID, operatorID uint64) error
	SyncNow(workspaceID, operatorID uint64) error
	Close()
}

// ProviderGateway 平台网关中发送相关的能力子集
type ProviderGateway interface {
	SendText(ctx context.Context, accountID, peerID, text, replyTo, localClientID string) (*provider.SendResult, error)
	SendMedia(ctx context.Context, accountID, peerID, mediaURL, mimeType, localClientID string) (*provider.SendResult, error)
	React(ctx context.Context, accountID, providerMsgID, emoji string) error
}

type inboxServiceImpl struct {
	hub            *engine.Hub
	threadRepo     repository.ThreadRepo
	readMarkerRepo repository.ReadMarkerRepo
	auditRepo      repository.AuditRepo
	capabilityRepo repository.CapabilityRepo
	tagRepo        repository.TagRepo
	messageRepo    mongo.MessageRepo
	searchRepo     es.ThreadRepo
	provider       ProviderGateway

	auditChan chan *model.AuditLog
	wg        sync.WaitGroup
	stopChan  chan struct{}
}

// NewInboxService 构造函数：初始化服务并启动审计落库工作池
func NewInboxService(hub *engine.Hub, threadRepo repository.ThreadRepo,
	readMarkerRepo repository.ReadMarkerRepo, auditRepo repository.AuditRepo,
	capabilityRepo repository.CapabilityRepo, tagRepo repository.TagRepo,
	messageRepo mongo.MessageRepo, searchRepo es.ThreadRepo, providerClient ProviderGateway) InboxService {
	s := &inboxServiceImpl{
		hub:            hub,
		threadRepo:     threadRepo,
		readMarkerRepo: readMarkerRepo,
		auditRepo:      auditRepo,
		capabilityRepo: capabilityRepo,
		tagRepo:        tagRepo,
		messageRepo:    messageRepo,
		searchRepo:     searchRepo,
		provider:       providerClient,
		auditChan:      make(chan *model.AuditLog, 1024),
		stopChan:       make(chan struct{}),
	}

	workerCount := 2
	s.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go s.auditWorker()
	}

	return s
}

// OpenSession 装配并登记完整引擎实例
// 同一操作员重复连接会替换并关停旧实例
func (s *inboxServiceImpl) OpenSession(ctx context.Context, claims *security.OperatorClaims) error {
	cfg := config.Cfg.Engine

	session := engine.NewSession(claims.WorkspaceID, claims.OperatorID, claims.AccountID, claims.AliasIDs)
	if shape, err := s.capabilityRepo.ColumnShape(ctx, claims.WorkspaceID, claims.OperatorID); err == nil {
		session.RestoreColumnShape(shape)
	}

	tracker := engine.NewReadTracker()
	markers, err := s.readMarkerRepo.ListByWorkspace(ctx, claims.WorkspaceID)
	if err != nil {
		log.WarnContext(ctx, "load read markers failed", "workspaceID", claims.WorkspaceID, "err", err)
	} else {
		own := make([]*model.ReadMarker, 0, len(markers))
		for _, m := range markers {
			if m.OperatorID == claims.OperatorID {
				own = append(own, m)
			}
		}
		tracker.Load(own)
	}

	projection := engine.NewProjection()
	overrides := engine.NewOverrideStore(time.Duration(cfg.OverrideTTL) * time.Millisecond)
	projector := engine.NewProjector(s.threadRepo, s.messageRepo, s.capabilityRepo,
		cfg.ThreadColumnShapes, cfg.PageSize, cfg.RowCeiling, cfg.MessageProbeLimit)
	scheduler := engine.NewScheduler(session, projector, projection, s.threadRepo,
		s.capabilityRepo, time.Duration(cfg.FastPollInterval)*time.Millisecond)

	inst := &engine.Instance{
		Session:    session,
		Projection: projection,
		Overrides:  overrides,
		Tracker:    tracker,
		Scheduler:  scheduler,
		Reconciler: engine.NewReconciler(s.messageRepo, cfg.MessageProbeLimit),
	}
	s.hub.Register(context.Background(), inst)

	log.InfoContext(ctx, "inbox session opened",
		"workspaceID", claims.WorkspaceID, "operatorID", claims.OperatorID)
	return nil
}

// CloseSession 注销引擎实例
func (s *inboxServiceImpl) CloseSession(workspaceID, operatorID uint64) {
	s.hub.Unregister(workspaceID, operatorID)
}

func (s *inboxServiceImpl) instance(workspaceID, operatorID uint64) (*engine.Instance, error) {
	inst, ok := s.hub.Get(workspaceID, operatorID)
	if !ok {
		return nil, UnauthorizedError
	}
	return inst, nil
}

// ListThreads 可见线程列表：投影快照叠加乐观覆盖与未读态，再补标签
// 协作者视角过滤掉被隐藏且未共享的会话
func (s *inboxServiceImpl) ListThreads(ctx context.Context, workspaceID, operatorID uint64, delegate bool) ([]*dto.ThreadDTO, error) {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return nil, err
	}

	views := inst.VisibleSnapshot()
	visible := make([]engine.ThreadView, 0, len(views))
	ids := make([]uint64, 0, len(views))
	for _, v := range views {
		if v.LeadStatus == consts.LeadStatusRemoved {
			continue
		}
		if delegate && v.HiddenFromDelegates == 1 && v.SharedWithDelegates == 0 {
			continue
		}
		visible = append(visible, v)
		if v.ID != 0 {
			ids = append(ids, v.ID)
		}
	}

	tagsByThread, err := s.tagRepo.ListByThreads(ctx, ids)
	if err != nil {
		log.WarnContext(ctx, "load thread tags failed", "workspaceID", workspaceID, "err", err)
		tagsByThread = map[uint64][]*model.ThreadTag{}
	}

	res := make([]*dto.ThreadDTO, 0, len(visible))
	for i := range visible {
		res = append(res, toThreadDTO(&visible[i], tagsByThread[visible[i].ID]))
	}
	return res, nil
}

// SelectThread 切换选中会话并对账加载消息流
// 慢请求返回时选择已变更的直接丢弃，防止旧会话消息串台
func (s *inboxServiceImpl) SelectThread(ctx context.Context, workspaceID, operatorID uint64, conversationKey string) (*dto.ThreadMessagesDTO, error) {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return nil, err
	}

	seq := inst.Session.Select(conversationKey)

	row, err := s.lookupThread(ctx, inst, workspaceID, conversationKey)
	if err != nil {
		return nil, err
	}

	msgs, err := inst.Reconciler.FetchThreadMessages(ctx, row)
	if err != nil {
		return nil, err
	}

	if !inst.Session.IsCurrent(conversationKey, seq) {
		return nil, ErrStaleSelection
	}

	res := &dto.ThreadMessagesDTO{
		ConversationKey: conversationKey,
		ReadOnly:        engine.IsPlaceholderPeer(row.PeerID),
		Messages:        make([]*dto.MessageDTO, 0, len(msgs)),
	}
	for _, m := range msgs {
		res.Messages = append(res.Messages, toMessageDTO(inst.Session, m))
	}
	return res, nil
}

// SendText 乐观发送文本：先落本地占位行与覆盖层，平台回执后确认合并
func (s *inboxServiceImpl) SendText(ctx context.Context, workspaceID, operatorID uint64, req *dto.SendTextReq) (*dto.MessageDTO, error) {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return nil, err
	}

	row, err := s.lookupThread(ctx, inst, workspaceID, req.ConversationKey)
	if err != nil {
		return nil, err
	}
	if engine.IsPlaceholderPeer(row.PeerID) {
		return nil, ErrPeerUnresolved
	}

	placeholder := s.buildOutbound(inst.Session, row, req.Text, nil)
	placeholder.ReplyToMsgID = req.ReplyToMsgID
	return s.dispatchOutbound(ctx, inst, row, placeholder, func(callCtx context.Context) (*provider.SendResult, error) {
		return s.provider.SendText(callCtx, row.AccountID, row.PeerID, req.Text, req.ReplyToMsgID, placeholder.LocalClientID)
	})
}

// SendMedia 乐观发送媒体，附件已先行上传到对象存储
func (s *inboxServiceImpl) SendMedia(ctx context.Context, workspaceID, operatorID uint64, req *dto.SendMediaReq) (*dto.MessageDTO, error) {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return nil, err
	}

	row, err := s.lookupThread(ctx, inst, workspaceID, req.ConversationKey)
	if err != nil {
		return nil, err
	}
	if engine.IsPlaceholderPeer(row.PeerID) {
		return nil, ErrPeerUnresolved
	}

	mediaURL := minio.GetPublicURL(req.ObjectName)
	attachments := []mongo.Attachment{{MimeType: req.MimeType, MediaURL: mediaURL}}
	placeholder := s.buildOutbound(inst.Session, row, "", attachments)
	return s.dispatchOutbound(ctx, inst, row, placeholder, func(callCtx context.Context) (*provider.SendResult, error) {
		return s.provider.SendMedia(callCtx, row.AccountID, row.PeerID, mediaURL, req.MimeType, placeholder.LocalClientID)
	})
}

// React 表情回应直接透传平台，结果消息由推送流带回
func (s *inboxServiceImpl) React(ctx context.Context, workspaceID, operatorID uint64, req *dto.ReactReq) error {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return err
	}

	row, err := s.lookupThread(ctx, inst, workspaceID, req.ConversationKey)
	if err != nil {
		return err
	}
	if engine.IsPlaceholderPeer(row.PeerID) {
		return ErrPeerUnresolved
	}

	if err := s.provider.React(ctx, row.AccountID, req.ProviderMsgID, req.Emoji); err != nil {
		log.ErrorContext(ctx, "provider react failed", "conversationKey", req.ConversationKey, "err", err)
		return ErrProviderSend
	}
	return nil
}

// MarkRead 已读双写：操作员水位 + 会话共享水位，均只前移
func (s *inboxServiceImpl) MarkRead(ctx context.Context, workspaceID, operatorID uint64, req *dto.MarkReadReq) error {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return err
	}

	row, err := s.lookupThread(ctx, inst, workspaceID, req.ConversationKey)
	if err != nil {
		return err
	}

	at := time.Now()
	if req.At > 0 {
		at = time.UnixMilli(req.At)
	}

	inst.Tracker.Advance(row.ID, at)

	if err := s.readMarkerRepo.AdvanceMarker(ctx, workspaceID, row.ID, operatorID, at); err != nil {
		return err
	}
	if err := s.threadRepo.AdvanceSharedReadAt(ctx, row.ID, at); err != nil {
		log.WarnContext(ctx, "advance shared read watermark failed", "threadID", row.ID, "err", err)
	}
	return nil
}

// SetPriority 切换优先标记
func (s *inboxServiceImpl) SetPriority(ctx context.Context, workspaceID, operatorID uint64, req *dto.PriorityThreadReq) error {
	fields := map[string]interface{}{"priority": flag(req.Priority)}
	if req.Priority {
		fields["priority_followed_up_at"] = (*time.Time)(nil)
	}
	return s.mutateThread(ctx, workspaceID, operatorID, req.ConversationKey, "priority", fields)
}

// SetSpam 垃圾标记
func (s *inboxServiceImpl) SetSpam(ctx context.Context, workspaceID, operatorID uint64, req *dto.SpamThreadReq) error {
	fields := map[string]interface{}{"is_spam": flag(req.Spam)}
	return s.mutateThread(ctx, workspaceID, operatorID, req.ConversationKey, "spam", fields)
}

// SetVisibility 对协作者隐藏/共享
func (s *inboxServiceImpl) SetVisibility(ctx context.Context, workspaceID, operatorID uint64, req *dto.VisibilityThreadReq) error {
	fields := map[string]interface{}{
		"hidden_from_delegates": flag(req.Hidden),
		"shared_with_delegates": flag(req.Shared),
	}
	return s.mutateThread(ctx, workspaceID, operatorID, req.ConversationKey, "visibility", fields)
}

// Snooze 优先跟进延后，until 为 0 时取消
func (s *inboxServiceImpl) Snooze(ctx context.Context, workspaceID, operatorID uint64, req *dto.SnoozeThreadReq) error {
	var until *time.Time
	if req.Until > 0 {
		t := time.UnixMilli(req.Until)
		if t.Before(time.Now()) {
			return ErrParamInvalid
		}
		until = &t
	}
	fields := map[string]interface{}{"priority_snoozed_until": until}
	return s.mutateThread(ctx, workspaceID, operatorID, req.ConversationKey, "snooze", fields)
}

// Assign 指派会话，指派同时解除对协作者的隐藏
func (s *inboxServiceImpl) Assign(ctx context.Context, workspaceID, operatorID uint64, req *dto.AssignThreadReq) error {
	fields := map[string]interface{}{
		"assigned_operator_id":  req.AssigneeID,
		"hidden_from_delegates": int8(0),
	}
	return s.mutateThread(ctx, workspaceID, operatorID, req.ConversationKey, "assign", fields)
}

// SearchThreads 会话全文搜索，走搜索索引而非投影
func (s *inboxServiceImpl) SearchThreads(ctx context.Context, workspaceID uint64, req *dto.SearchThreadsReq) ([]*dto.ThreadDTO, error) {
	size := req.Size
	if size <= 0 || size > 50 {
		size = 20
	}
	docs, err := s.searchRepo.SearchThreads(ctx, workspaceID, req.Query, req.From, size)
	if err != nil {
		log.ErrorContext(ctx, "thread search failed", "workspaceID", workspaceID, "err", err)
		return nil, UnExpectedError
	}

	res := make([]*dto.ThreadDTO, 0, len(docs))
	for _, doc := range docs {
		item := &dto.ThreadDTO{
			ID:              doc.ID,
			ConversationKey: doc.ConversationKey,
			PeerID:          doc.PeerID,
			PeerDisplayName: doc.PeerDisplayName,
			LeadStatus:      doc.LeadStatus,
			SummaryText:     doc.SummaryText,
			LastMessageText: doc.LastMessageText,
			Tags:            make([]dto.TagDTO, 0, len(doc.Tags)),
		}
		if !doc.LastMessageAt.IsZero() {
			at := doc.LastMessageAt
			item.LastMessageAt = &at
		}
		for _, name := range doc.Tags {
			canonical, class := engine.Canonicalize(name)
			item.Tags = append(item.Tags, dto.TagDTO{Name: canonical, Class: string(class)})
		}
		res = append(res, item)
	}
	return res, nil
}

// Refresh 请求一次全量重载
func (s *inboxServiceImpl) Refresh(workspaceID, operatorID uint64) error {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return err
	}
	inst.Scheduler.RequestReload()
	return nil
}

// SyncNow 请求一次快轮询
func (s *inboxServiceImpl) SyncNow(workspaceID, operatorID uint64) error {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return err
	}
	inst.Scheduler.RequestPoll()
	return nil
}

func (s *inboxServiceImpl) Close() {
	close(s.stopChan)
	s.wg.Wait()
	log.Info("InboxService shut down gracefully")
}

// lookupThread 投影优先，未命中回源镜像表
func (s *inboxServiceImpl) lookupThread(ctx context.Context, inst *engine.Instance, workspaceID uint64, conversationKey string) (*model.Thread, error) {
	if row, ok := inst.Projection.Get(conversationKey); ok {
		return &row, nil
	}
	row, err := s.threadRepo.GetByConversationKey(ctx, workspaceID, conversationKey)
	if err != nil {
		return nil, ErrThreadNotFound
	}
	return row, nil
}

// mutateThread 单会话状态变更的统一通路：
// 乐观补丁（投影 + 覆盖层）→ 落库 → 成功清覆盖并审计，失败回滚快照
func (s *inboxServiceImpl) mutateThread(ctx context.Context, workspaceID, operatorID uint64,
	conversationKey, action string, fields map[string]interface{}) error {
	inst, err := s.instance(workspaceID, operatorID)
	if err != nil {
		return err
	}

	row, err := s.lookupThread(ctx, inst, workspaceID, conversationKey)
	if err != nil {
		return err
	}
	snapshot := *row

	appliedAt := time.Now().UnixMilli()
	inst.Projection.ApplyFields(conversationKey, fields, appliedAt)
	inst.Overrides.Put(conversationKey, fields)

	if err := s.threadRepo.UpdateFields(ctx, row.ID, fields); err != nil {
		inst.Overrides.Discard(conversationKey)
		inst.Projection.ApplyRow(&snapshot, time.Now().UnixMilli())
		log.ErrorContext(ctx, "thread mutation failed",
			"action", action, "conversationKey", conversationKey, "err", err)
		return UnExpectedError
	}

	inst.Overrides.Discard(conversationKey)
	s.appendAudit(ctx, workspaceID, operatorID, row.ID, action, &snapshot, fields)
	return nil
}

// appendAudit 审计异步落库，队列满则丢弃并告警
func (s *inboxServiceImpl) appendAudit(ctx context.Context, workspaceID, operatorID, threadID uint64,
	action string, before *model.Thread, fields map[string]interface{}) {
	beforeJSON, _ := json.Marshal(engine.SnapshotFields(before, fields))
	afterJSON, _ := json.Marshal(fields)
	entry := &model.AuditLog{
		WorkspaceID: workspaceID,
		ThreadID:    threadID,
		Action:      action,
		ActorID:     operatorID,
		Before:      string(beforeJSON),
		After:       string(afterJSON),
	}
	select {
	case s.auditChan <- entry:
	default:
		log.WarnContext(ctx, "audit queue full, entry dropped", "action", action, "threadID", threadID)
	}
}

func (s *inboxServiceImpl) auditWorker() {
	defer s.wg.Done()
	for {
		select {
		case entry := <-s.auditChan:
			backoff := time.Second
			for i := 0; i < 3; i++ {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := s.auditRepo.Append(ctx, entry)
				cancel()
				if err == nil {
					break
				}
				time.Sleep(backoff)
				backoff *= 2
			}
		case <-s.stopChan:
			return
		}
	}
}

// buildOutbound 组装乐观发送的占位消息行
func (s *inboxServiceImpl) buildOutbound(session *engine.Session, row *model.Thread,
	text string, attachments []mongo.Attachment) *mongo.Message {
	now := time.Now()
	return &mongo.Message{
		WorkspaceID:     session.WorkspaceID,
		LocalClientID:   uuid.NewString(),
		ConversationKey: row.ConversationKey,
		AccountID:       row.AccountID,
		PeerID:          row.PeerID,
		SenderID:        session.AccountID,
		RecipientID:     row.PeerID,
		Direction:       consts.DirectionOutbound,
		Text:            text,
		Attachments:     attachments,
		Timestamp:       now,
		CreatedAt:       now,
	}
}

// dispatchOutbound 乐观发送通路：
// 占位行落库 → 覆盖层预写会话摘要 → 平台发送 → 回执确认占位行，确认值入投影后撤覆盖
// 发送失败则覆盖与占位行全部撤销，乐观状态不留残迹
func (s *inboxServiceImpl) dispatchOutbound(ctx context.Context, inst *engine.Instance, row *model.Thread,
	placeholder *mongo.Message, send func(context.Context) (*provider.SendResult, error)) (*dto.MessageDTO, error) {

	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := s.messageRepo.SaveMessage(writeCtx, placeholder); err != nil {
		log.WarnContext(ctx, "save optimistic message failed",
			"conversationKey", row.ConversationKey, "err", err)
	}
	cancel()

	preview := placeholder.Text
	if preview == "" && len(placeholder.Attachments) > 0 {
		preview = "[附件]"
	}
	inst.Overrides.Put(row.ConversationKey, map[string]interface{}{
		"last_message_text":      preview,
		"last_message_direction": consts.DirectionOutbound,
		"last_message_at":        placeholder.Timestamp,
		"last_outbound_at":       placeholder.Timestamp,
	})

	res, err := send(ctx)
	if err != nil {
		inst.Overrides.Discard(row.ConversationKey)
		// 占位行一并撤掉，否则会以永远 pending 的幽灵消息留在消息流里
		delCtx, cancelDel := context.WithTimeout(context.Background(), 2*time.Second)
		if derr := s.messageRepo.DeleteByLocalClientID(delCtx, placeholder.LocalClientID); derr != nil {
			log.WarnContext(ctx, "delete optimistic message failed",
				"localClientID", placeholder.LocalClientID, "err", derr)
		}
		cancelDel()
		log.ErrorContext(ctx, "provider send failed",
			"conversationKey", row.ConversationKey, "err", err)
		return nil, ErrProviderSend
	}

	sentAtMs := engine.NormalizeTimestamp(res.Timestamp)
	if sentAtMs == 0 {
		sentAtMs = placeholder.Timestamp.UnixMilli()
	}
	sentAt := time.UnixMilli(sentAtMs)

	if err := s.messageRepo.ConfirmLocalSend(ctx, placeholder.LocalClientID, res.ProviderMsgID, sentAt); err != nil {
		log.WarnContext(ctx, "confirm optimistic message failed",
			"localClientID", placeholder.LocalClientID, "err", err)
	}

	inst.Projection.ApplyFields(row.ConversationKey, map[string]interface{}{
		"last_message_id":        res.ProviderMsgID,
		"last_message_text":      preview,
		"last_message_direction": consts.DirectionOutbound,
		"last_message_at":        sentAt,
		"last_outbound_at":       sentAt,
		"last_message_raw_ts":    res.Timestamp,
	}, sentAtMs)
	// 确认值已直接写入投影，覆盖层即刻退场，不等 CDC 回流
	inst.Overrides.Discard(row.ConversationKey)

	out := toMessageDTO(inst.Session, placeholder)
	out.ProviderMsgID = res.ProviderMsgID
	out.Pending = false
	out.Timestamp = sentAt
	return out, nil
}

func flag(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

func toThreadDTO(v *engine.ThreadView, assocs []*model.ThreadTag) *dto.ThreadDTO {
	tags := make([]dto.TagDTO, 0, len(assocs))
	for _, assoc := range assocs {
		if assoc.Tag.ID == 0 {
			continue
		}
		_, class := engine.Canonicalize(assoc.Tag.Name)
		tags = append(tags, dto.TagDTO{
			ID:     assoc.Tag.ID,
			Name:   assoc.Tag.Name,
			Class:  string(class),
			Color:  assoc.Tag.Color,
			Icon:   assoc.Tag.Icon,
			Source: assoc.Source,
		})
	}
	return &dto.ThreadDTO{
		ID:                   v.ID,
		ConversationKey:      v.ConversationKey,
		PeerID:               v.PeerID,
		PeerDisplayName:      v.PeerDisplayName,
		PeerAvatarURL:        v.PeerAvatarURL,
		Priority:             v.Priority == 1,
		IsSpam:               v.IsSpam == 1,
		HiddenFromDelegates:  v.HiddenFromDelegates == 1,
		SharedWithDelegates:  v.SharedWithDelegates == 1,
		LeadStatus:           v.LeadStatus,
		AssignedOperatorID:   v.AssignedOperatorID,
		PrioritySnoozedUntil: v.PrioritySnoozedUntil,
		SummaryText:          v.SummaryText,
		LastMessageText:      v.LastMessageText,
		LastMessageDirection: v.LastMessageDirection,
		LastMessageAt:        v.LastMessageAt,
		Unread:               v.Unread,
		Tags:                 tags,
	}
}

func toMessageDTO(session *engine.Session, m *mongo.Message) *dto.MessageDTO {
	direction := session.InferDirection(engine.RawRecord{
		AccountID:       m.AccountID,
		PeerID:          m.PeerID,
		SenderID:        m.SenderID,
		RecipientID:     m.RecipientID,
		ConversationKey: m.ConversationKey,
		Direction:       m.Direction,
		RawPayload:      m.RawPayload,
	}, m.PeerID)

	attachments := make([]dto.AttachmentDTO, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, dto.AttachmentDTO{
			MimeType: a.MimeType,
			URL:      a.MediaURL,
			Width:    a.Width,
			Height:   a.Height,
			Duration: a.Duration,
			CoverURL: a.CoverURL,
		})
	}

	return &dto.MessageDTO{
		ID:            m.ID,
		ProviderMsgID: m.ProviderMsgID,
		LocalClientID: m.LocalClientID,
		Direction:     direction,
		SenderID:      m.SenderID,
		Text:          m.Text,
		Attachments:   attachments,
		ReplyToMsgID:  m.ReplyToMsgID,
		Reaction:      m.Reaction,
		Pending:       m.ProviderMsgID == "" && m.LocalClientID != "",
		Timestamp:     time.UnixMilli(engine.PreferredTimestamp(m.Timestamp, m.RawProviderTs)),
	}
}
