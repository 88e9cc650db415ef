package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepo 消息明细库访问接口
// 四条查询策略对应对账器的四条取数路径，互相重叠，由调用方按 id 去重
type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	FindByConversationKey(ctx context.Context, workspaceID uint64, key string, limit int) ([]*Message, error)
	FindByPeer(ctx context.Context, workspaceID uint64, accountID, peerID string, limit int) ([]*Message, error)
	FindLegacyByParticipants(ctx context.Context, workspaceID uint64, ids []string, limit int) ([]*Message, error)
	FindLooseByParticipant(ctx context.Context, workspaceID uint64, id string, limit int) ([]*Message, error)
	FindByProviderMsgID(ctx context.Context, workspaceID uint64, providerMsgID string) (*Message, error)
	FindRecent(ctx context.Context, workspaceID uint64, limit int) ([]*Message, error)
	ConfirmLocalSend(ctx context.Context, localClientID string, providerMsgID string, sentAt time.Time) error
	DeleteByLocalClientID(ctx context.Context, localClientID string) error
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("message"),
	}
}

// SaveMessage 将消息存入 MongoDB
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

func (s *messageRepoImpl) find(ctx context.Context, filter bson.M, limit int) ([]*Message, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// FindByConversationKey 策略一：平台会话键精确匹配
func (s *messageRepoImpl) FindByConversationKey(ctx context.Context, workspaceID uint64, key string, limit int) ([]*Message, error) {
	return s.find(ctx, bson.M{
		"workspace_id":     workspaceID,
		"conversation_key": key,
	}, limit)
}

// FindByPeer 策略二：稳定对端 id 匹配
func (s *messageRepoImpl) FindByPeer(ctx context.Context, workspaceID uint64, accountID, peerID string, limit int) ([]*Message, error) {
	return s.find(ctx, bson.M{
		"workspace_id": workspaceID,
		"account_id":   accountID,
		"peer_id":      peerID,
	}, limit)
}

// FindLegacyByParticipants 策略三：缺会话键的历史行，按参与者匹配
func (s *messageRepoImpl) FindLegacyByParticipants(ctx context.Context, workspaceID uint64, ids []string, limit int) ([]*Message, error) {
	return s.find(ctx, bson.M{
		"workspace_id": workspaceID,
		"conversation_key": bson.M{"$in": bson.A{nil, ""}},
		"$or": bson.A{
			bson.M{"sender_id": bson.M{"$in": ids}},
			bson.M{"recipient_id": bson.M{"$in": ids}},
			bson.M{"peer_id": bson.M{"$in": ids}},
		},
	}, limit)
}

// FindLooseByParticipant 策略四：宽松参与者匹配（发送方或接收方命中即取）
func (s *messageRepoImpl) FindLooseByParticipant(ctx context.Context, workspaceID uint64, id string, limit int) ([]*Message, error) {
	return s.find(ctx, bson.M{
		"workspace_id": workspaceID,
		"$or": bson.A{
			bson.M{"sender_id": id},
			bson.M{"recipient_id": id},
		},
	}, limit)
}

// FindByProviderMsgID 二次解析入口：由已知消息 id 反查平台侧原始分组键
func (s *messageRepoImpl) FindByProviderMsgID(ctx context.Context, workspaceID uint64, providerMsgID string) (*Message, error) {
	var msg Message
	err := s.col.FindOne(ctx, bson.M{
		"workspace_id":    workspaceID,
		"provider_msg_id": providerMsgID,
	}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// FindRecent 镜像表缺失时的兜底：取最近 N 条消息供投影器合成会话
func (s *messageRepoImpl) FindRecent(ctx context.Context, workspaceID uint64, limit int) ([]*Message, error) {
	return s.find(ctx, bson.M{"workspace_id": workspaceID}, limit)
}

// ConfirmLocalSend 平台确认后用真实消息 id 置换本地占位行
func (s *messageRepoImpl) ConfirmLocalSend(ctx context.Context, localClientID string, providerMsgID string, sentAt time.Time) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"local_client_id": localClientID},
		bson.M{"$set": bson.M{
			"provider_msg_id": providerMsgID,
			"timestamp":       sentAt,
		}},
	)
	return err
}

// DeleteByLocalClientID 发送失败后清除本地占位行
// 只删未确认的行：已确认的行带平台 id，保护其不被并发失败路径误删
func (s *messageRepoImpl) DeleteByLocalClientID(ctx context.Context, localClientID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{
		"local_client_id": localClientID,
		"provider_msg_id": bson.M{"$in": bson.A{nil, ""}},
	})
	return err
}
