package dao

import (
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
)

// 表名
const (
	tableBanners     = "banners"
	tableItems       = "items"
	tableDrawRecords = "draw_records"
	tableHoldings    = "holdings"
)

// recordQuery 记录一次数据库操作的结果与耗时
func recordQuery(m *metrics.GachaMetrics, operation string, start time.Time, err error) {
	m.RecordDBQuery(operation, err == nil, time.Since(start).Seconds())
}
