package forecast

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jiangshan55555/power-market-system/market"
)

// Client 从预测服务拉取 prediction_results 数据。HTTPClient 可注入
// httptest，默认不发起真实网络调用。
type Client struct {
	URL         string
	ForecastCol string
	ActualCol   string
	HTTPClient  *http.Client
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// Fetch 拉取并解析预测数据。
func (c *Client) Fetch(ctx context.Context) (market.Sample, error) {
	if c == nil || c.HTTPClient == nil {
		return market.Sample{}, fmt.Errorf("http client not set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return market.Sample{}, fmt.Errorf("build forecast request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return market.Sample{}, fmt.Errorf("fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return market.Sample{}, fmt.Errorf("forecast service status %d", resp.StatusCode)
	}
	return Parse(resp.Body, c.ForecastCol, c.ActualCol)
}
