// Package forecast loads day-ahead price forecast data, either from the
// local prediction pipeline output (CSV) or from the forecast service over
// HTTP, and derives the dynamic price grid from it.
package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jiangshan55555/power-market-system/market"
)

var (
	// ErrMissingColumn 预测数据缺少必需的列。
	ErrMissingColumn = errors.New("required column not found in forecast data")
	// ErrNoRecords 预测数据里没有任何可用记录。
	ErrNoRecords = errors.New("forecast data contains no usable records")
)

// 预测管线导出的时间戳格式不统一，逐个尝试
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse 解析 prediction_results 格式的CSV：必需 timestamp 列、预测价格列与
// 实际价格列（列名可配置），其余列忽略。缺失或无法解析的行整行丢弃。
func Parse(r io.Reader, forecastCol, actualCol string) (market.Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return market.Sample{}, fmt.Errorf("read forecast header: %w", err)
	}

	tsIdx := indexOf(header, "timestamp")
	fIdx := indexOf(header, forecastCol)
	aIdx := indexOf(header, actualCol)
	if tsIdx < 0 {
		return market.Sample{}, fmt.Errorf("%w: timestamp", ErrMissingColumn)
	}
	if fIdx < 0 {
		return market.Sample{}, fmt.Errorf("%w: %s", ErrMissingColumn, forecastCol)
	}
	if aIdx < 0 {
		return market.Sample{}, fmt.Errorf("%w: %s", ErrMissingColumn, actualCol)
	}

	var (
		ts []time.Time
		da []float64
		rt []float64
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return market.Sample{}, fmt.Errorf("read forecast row: %w", err)
		}

		t, ok := parseTime(row[tsIdx])
		if !ok {
			continue
		}
		f, err1 := strconv.ParseFloat(row[fIdx], 64)
		a, err2 := strconv.ParseFloat(row[aIdx], 64)
		if err1 != nil || err2 != nil {
			continue
		}

		ts = append(ts, t)
		da = append(da, f)
		rt = append(rt, a)
	}

	if len(ts) == 0 {
		return market.Sample{}, ErrNoRecords
	}
	return market.NewSample(ts, da, rt)
}

// LoadFile 从本地CSV文件加载预测数据。
func LoadFile(path, forecastCol, actualCol string) (market.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return market.Sample{}, fmt.Errorf("open forecast file: %w", err)
	}
	defer f.Close()
	return Parse(f, forecastCol, actualCol)
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
