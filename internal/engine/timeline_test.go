package engine

import (
	"testing"
	"time"
)

func TestNormalizeTimestamp(t *testing.T) {
	at := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  interface{}
		want int64
	}{
		{"nil", nil, 0},
		{"zero time", time.Time{}, 0},
		{"native time", at, at.UnixMilli()},
		{"nil time pointer", (*time.Time)(nil), 0},
		{"unix seconds int", int(1717207200), 1717207200000},
		{"unix millis int64", int64(1717207200123), 1717207200123},
		{"unix seconds float", float64(1717207200), 1717207200000},
		{"negative", int64(-5), 0},
		{"ten digit string is seconds", "1717207200", 1717207200000},
		{"twelve digit string is seconds", "171720720012", 171720720012000},
		{"thirteen digit string is millis", "1717207200123", 1717207200123},
		{"iso with colon offset", "2024-06-01T10:00:00+08:00", 1717207200000},
		{"iso with no colon offset", "2024-06-01T10:00:00+0800", 1717207200000},
		{"iso utc", "2024-06-01T02:00:00Z", 1717207200000},
		{"garbage string", "yesterday", 0},
		{"empty string", "", 0},
		{"unknown type", struct{}{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTimestamp(tt.raw); got != tt.want {
				t.Fatalf("NormalizeTimestamp(%v) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPreferredTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		primary interface{}
		raw     interface{}
		want    int64
	}{
		// 主时间戳正常则一律以主为准
		{"primary wins", int64(1717207200123), int64(1717200000000), 1717207200123},
		{"primary missing", nil, int64(1717207200), 1717207200000},
		{"both missing", nil, nil, 0},
		// 秒值当毫秒入库的历史行：主时间戳落在 2005 年前，取平台原始值
		{"epoch artifact", int64(1717207), int64(1717207200), 1717207200000},
		// 原始值同样可疑时不救，保留主值
		{"both artifacts", int64(1717207), int64(9999), 1717207000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreferredTimestamp(tt.primary, tt.raw); got != tt.want {
				t.Fatalf("PreferredTimestamp(%v, %v) = %d, want %d", tt.primary, tt.raw, got, tt.want)
			}
		})
	}
}

func TestThreadActivityAt(t *testing.T) {
	at := time.UnixMilli(1717207200123)
	if got := ThreadActivityAt(&at, 0); got != 1717207200123 {
		t.Fatalf("ThreadActivityAt = %d, want 1717207200123", got)
	}
	// 镜像行的 last_message_at 被毫秒误存为秒，raw_ts 兜底
	bad := time.UnixMilli(1717207200)
	if got := ThreadActivityAt(&bad, 1717207200); got != 1717207200000 {
		t.Fatalf("ThreadActivityAt artifact guard = %d, want 1717207200000", got)
	}
	if got := ThreadActivityAt(nil, 1717207200); got != 1717207200000 {
		t.Fatalf("ThreadActivityAt nil primary = %d, want 1717207200000", got)
	}
}
