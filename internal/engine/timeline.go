package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// epochArtifactCutoff 2005-01-01 UTC 的毫秒值
// 早于该值的"主时间戳"视为秒值被当毫秒解析的历史脏数据
const epochArtifactCutoff int64 = 1104537600000

// msBoundary 13 位及以上的数字视为毫秒，不足 13 位视为秒
const msBoundary int64 = 1_000_000_000_000

// 平台侧 ISO 串常见畸形：4 位时区偏移缺冒号，如 2024-06-01T10:00:00+0800
var zoneNoColonRe = regexp.MustCompile(`([+-]\d{2})(\d{2})$`)

// NormalizeTimestamp 将未知形态的原始时间值统一为毫秒，无法解析时返回 0
// 接受：unix 秒、unix 毫秒（数字或数字串）、ISO-8601（含缺冒号偏移）、time.Time
func NormalizeTimestamp(raw interface{}) int64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case time.Time:
		if v.IsZero() {
			return 0
		}
		return v.UnixMilli()
	case *time.Time:
		if v == nil || v.IsZero() {
			return 0
		}
		return v.UnixMilli()
	case int:
		return normalizeEpoch(int64(v))
	case int32:
		return normalizeEpoch(int64(v))
	case int64:
		return normalizeEpoch(v)
	case uint64:
		return normalizeEpoch(int64(v))
	case float64:
		return normalizeEpoch(int64(v))
	case string:
		return normalizeString(v)
	default:
		return 0
	}
}

func normalizeEpoch(v int64) int64 {
	if v <= 0 {
		return 0
	}
	if v < msBoundary {
		return v * 1000
	}
	return v
}

func normalizeString(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0
		}
		// 位数规则：不足 13 位按秒，13 位起按毫秒
		if len(s) < 13 {
			return n * 1000
		}
		return n
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli()
	}
	// 修补缺冒号的 4 位时区偏移后重试
	if fixed := zoneNoColonRe.ReplaceAllString(s, "$1:$2"); fixed != s {
		if t, err := time.Parse(time.RFC3339, fixed); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// PreferredTimestamp 主时间戳与平台原始时间戳不一致时的取舍：
// 主时间戳落在 2005 年前（秒值被当毫秒入库的典型特征）且原始值正常，则取原始值。
// 该规则必须用于所有时间比较处，否则排序会被历史脏数据破坏
func PreferredTimestamp(primary, rawProvider interface{}) int64 {
	p := NormalizeTimestamp(primary)
	r := NormalizeTimestamp(rawProvider)

	if p == 0 {
		return r
	}
	if r >= epochArtifactCutoff && p < epochArtifactCutoff {
		return r
	}
	return p
}

// ThreadActivityAt 会话最近活跃时刻（毫秒），用于收件箱排序
func ThreadActivityAt(lastMessageAt *time.Time, rawTs int64) int64 {
	return PreferredTimestamp(lastMessageAt, rawTs)
}
