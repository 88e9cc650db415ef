package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	JWTSecret         string = "Leadline"
	JWTExpirationTime        = time.Hour * 24
)

// OperatorClaims 上游账号体系签发的 Token 业务信息：当前操作员 + 当前工作区
type OperatorClaims struct {
	OperatorID  uint64   `json:"operator_id"`
	WorkspaceID uint64   `json:"workspace_id"`
	AccountID   string   `json:"account_id"` // 工作区绑定的外部平台账号
	AliasIDs    []string `json:"alias_ids"`  // 历史/关联账号 id，参与方向推断
	Roles       []string `json:"roles"`      // OWNER / SETTER
	jwt.RegisteredClaims
}
