package service

import (
	"Leadline/internal/api/dto"
	"Leadline/internal/engine"
	"Leadline/internal/model"
	"Leadline/internal/pkg/consts"
	"Leadline/internal/pkg/redis"
	"Leadline/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

// TagService 标签服务接口定义
// 名称先走同义词折算，温度/阶段两类规范标签在类内互斥，阶段同时镜像 lead_status
type TagService interface {
	ApplyTag(ctx context.Context, workspaceID, operatorID uint64, req *dto.ApplyTagReq) (*dto.TagDTO, error)
	RemoveTag(ctx context.Context, workspaceID, operatorID uint64, req *dto.RemoveTagReq) error
	ListThreadTags(ctx context.Context, workspaceID uint64, conversationKey string) ([]dto.TagDTO, error)
}

type tagServiceImpl struct {
	hub        *engine.Hub
	tagRepo    repository.TagRepo
	threadRepo repository.ThreadRepo
	auditRepo  repository.AuditRepo
}

func NewTagService(hub *engine.Hub, tagRepo repository.TagRepo,
	threadRepo repository.ThreadRepo, auditRepo repository.AuditRepo) TagService {
	return &tagServiceImpl{
		hub:        hub,
		tagRepo:    tagRepo,
		threadRepo: threadRepo,
		auditRepo:  auditRepo,
	}
}

// ApplyTag 打标签
// 规范标签缺行时按预设自动建行；阶段标签落库后把 lead_status 补丁回投影
func (s *tagServiceImpl) ApplyTag(ctx context.Context, workspaceID, operatorID uint64, req *dto.ApplyTagReq) (*dto.TagDTO, error) {
	row, err := s.threadRepo.GetByConversationKey(ctx, workspaceID, req.ConversationKey)
	if err != nil {
		return nil, ErrThreadNotFound
	}

	canonical, class := engine.Canonicalize(req.Name)

	var tag *model.Tag
	if class == engine.ClassNone {
		tag, err = s.tagRepo.GetOrCreateTag(ctx, workspaceID, canonical, "", "", "")
		if err != nil {
			return nil, err
		}
		if err := s.tagRepo.AddAssociation(ctx, row.ID, tag.ID, consts.TagSourceManual); err != nil {
			return nil, err
		}
	} else {
		preset, _ := engine.PresetFor(canonical)
		tag, err = s.tagRepo.GetOrCreateTag(ctx, workspaceID, canonical, preset.Color, preset.Icon, preset.Prompt)
		if err != nil {
			return nil, err
		}

		removeIDs, err := s.sameClassTagIDs(ctx, row.ID, class, tag.ID)
		if err != nil {
			return nil, err
		}

		var leadStatus *string
		if class == engine.ClassPhase {
			ls := engine.PhaseToLeadStatus(canonical)
			leadStatus = &ls
		}

		if err := s.tagRepo.ReplaceClassTag(ctx, row.ID, tag.ID, removeIDs, consts.TagSourceManual, leadStatus); err != nil {
			return nil, err
		}

		if leadStatus != nil {
			if inst, ok := s.hub.Get(workspaceID, operatorID); ok {
				inst.Projection.ApplyFields(req.ConversationKey,
					map[string]interface{}{"lead_status": *leadStatus}, time.Now().UnixMilli())
			}
		}
	}

	s.appendTagAudit(ctx, workspaceID, operatorID, row.ID, "tag", req.Name, canonical)
	s.markSearchDirty(ctx, row.ID)

	return &dto.TagDTO{
		ID:     tag.ID,
		Name:   tag.Name,
		Class:  string(class),
		Color:  tag.Color,
		Icon:   tag.Icon,
		Source: consts.TagSourceManual,
	}, nil
}

// RemoveTag 摘标签，摘掉阶段标签时 lead_status 回落 open
func (s *tagServiceImpl) RemoveTag(ctx context.Context, workspaceID, operatorID uint64, req *dto.RemoveTagReq) error {
	row, err := s.threadRepo.GetByConversationKey(ctx, workspaceID, req.ConversationKey)
	if err != nil {
		return ErrThreadNotFound
	}

	tag, err := s.tagRepo.GetTag(ctx, workspaceID, req.TagID)
	if err != nil {
		return ErrTagNotFound
	}

	if err := s.tagRepo.RemoveAssociation(ctx, row.ID, tag.ID); err != nil {
		return err
	}

	if _, class := engine.Canonicalize(tag.Name); class == engine.ClassPhase {
		fields := map[string]interface{}{"lead_status": consts.LeadStatusOpen}
		if err := s.threadRepo.UpdateFields(ctx, row.ID, fields); err != nil {
			log.WarnContext(ctx, "reset lead status failed", "threadID", row.ID, "err", err)
		} else if inst, ok := s.hub.Get(workspaceID, operatorID); ok {
			inst.Projection.ApplyFields(req.ConversationKey, fields, time.Now().UnixMilli())
		}
	}

	s.appendTagAudit(ctx, workspaceID, operatorID, row.ID, "untag", tag.Name, tag.Name)
	s.markSearchDirty(ctx, row.ID)
	return nil
}

// ListThreadTags 会话标签列表
func (s *tagServiceImpl) ListThreadTags(ctx context.Context, workspaceID uint64, conversationKey string) ([]dto.TagDTO, error) {
	row, err := s.threadRepo.GetByConversationKey(ctx, workspaceID, conversationKey)
	if err != nil {
		return nil, ErrThreadNotFound
	}

	assocs, err := s.tagRepo.ListByThread(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	res := make([]dto.TagDTO, 0, len(assocs))
	for _, assoc := range assocs {
		if assoc.Tag.ID == 0 {
			continue
		}
		_, class := engine.Canonicalize(assoc.Tag.Name)
		res = append(res, dto.TagDTO{
			ID:     assoc.Tag.ID,
			Name:   assoc.Tag.Name,
			Class:  string(class),
			Color:  assoc.Tag.Color,
			Icon:   assoc.Tag.Icon,
			Source: assoc.Source,
		})
	}
	return res, nil
}

// sameClassTagIDs 已挂在会话上的同类标签 id，置换时摘除
func (s *tagServiceImpl) sameClassTagIDs(ctx context.Context, threadID uint64, class engine.TagClass, keepTagID uint64) ([]uint64, error) {
	assocs, err := s.tagRepo.ListByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, 2)
	for _, assoc := range assocs {
		if assoc.Tag.ID == 0 || assoc.Tag.ID == keepTagID {
			continue
		}
		if _, c := engine.Canonicalize(assoc.Tag.Name); c == class {
			ids = append(ids, assoc.Tag.ID)
		}
	}
	return ids, nil
}

func (s *tagServiceImpl) appendTagAudit(ctx context.Context, workspaceID, operatorID, threadID uint64,
	action, rawName, canonical string) {
	beforeJSON, _ := json.Marshal(map[string]interface{}{"name": rawName})
	afterJSON, _ := json.Marshal(map[string]interface{}{"name": canonical})
	entry := &model.AuditLog{
		WorkspaceID: workspaceID,
		ThreadID:    threadID,
		Action:      action,
		ActorID:     operatorID,
		Before:      string(beforeJSON),
		After:       string(afterJSON),
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		log.WarnContext(ctx, "append tag audit failed", "threadID", threadID, "err", err)
	}
}

func (s *tagServiceImpl) markSearchDirty(ctx context.Context, threadID uint64) {
	if err := redis.SAdd(ctx, consts.ThreadSearchDirtyKey, threadID); err != nil {
		log.WarnContext(ctx, "mark search dirty failed", "threadID", threadID, "err", err)
	}
}
