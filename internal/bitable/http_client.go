package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/internal/observability"
	"github.com/caseflow/agentd/pkg/models"
)

// HTTPClient is the production Client backed by the low-code backend's
// REST API. Spec §1 scopes the wire format itself out ("only a narrow
// client interface is specified"); this implementation assumes a
// Feishu/Lark-Bitable-shaped REST surface, the lowest common
// denominator the spec's field-value shapes (option arrays, person
// tuples, millisecond timestamps, rich-text blobs) describe.
type HTTPClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	metrics     *observability.Metrics
	logger      *observability.Logger
}

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(cfg HTTPClientConfig, metrics *observability.Metrics, logger *observability.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		metrics:     metrics,
		logger:      logger,
	}
}

func (c *HTTPClient) do(ctx context.Context, operation, method, path string, body any) (*http.Response, error) {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, agenterr.General("failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, agenterr.General("failed to build backend request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordBitableQuery(operation, time.Since(start).Seconds())
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, agenterr.Timeout(fmt.Sprintf("backend call %s timed out", operation), err)
		}
		return nil, agenterr.ConnectionError(fmt.Sprintf("backend call %s failed", operation), err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, agenterr.RecordNotFound(fmt.Sprintf("backend call %s: not found", operation), nil)
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, agenterr.PermissionDenied(fmt.Sprintf("backend call %s: permission denied", operation), nil)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, agenterr.RateLimit(fmt.Sprintf("backend call %s: rate limited", operation), nil)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if isFilterNotSupported(raw) {
			return nil, agenterr.FilterNotSupported(fmt.Sprintf("backend call %s: filter not supported", operation), nil)
		}
		return nil, agenterr.General(fmt.Sprintf("backend call %s failed with status %d", operation, resp.StatusCode), nil)
	}

	return resp, nil
}

// isFilterNotSupported inspects an error response body for the
// backend's filter-rejection signature, so the query skill's
// local-fallback policy (spec §4.7) can be triggered distinctly from a
// generic failure.
func isFilterNotSupported(body []byte) bool {
	var payload struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return payload.Code == 1254607 || payload.Msg == "FieldNameNotFound" || payload.Msg == "InvalidFilter"
}

func (c *HTTPClient) ListTables(ctx context.Context, appToken string) ([]models.TableRef, error) {
	resp, err := c.do(ctx, "list_tables", http.MethodGet, fmt.Sprintf("/apps/%s/tables", appToken), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Data struct {
			Items []struct {
				TableID string `json:"table_id"`
				Name    string `json:"name"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, agenterr.General("failed to decode list_tables response", err)
	}

	tables := make([]models.TableRef, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		tables = append(tables, models.TableRef{TableID: item.TableID, TableName: item.Name})
	}
	return tables, nil
}

func (c *HTTPClient) ListFields(ctx context.Context, tableID string) ([]FieldMeta, error) {
	resp, err := c.do(ctx, "list_fields", http.MethodGet, fmt.Sprintf("/tables/%s/fields", tableID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Data struct {
			Items []struct {
				FieldName string `json:"field_name"`
				Type      int    `json:"type"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, agenterr.General("failed to decode list_fields response", err)
	}

	fields := make([]FieldMeta, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		fields = append(fields, FieldMeta{Name: item.FieldName, Type: fieldTypeName(item.Type)})
	}
	return fields, nil
}

func fieldTypeName(code int) string {
	switch code {
	case 1:
		return "text"
	case 2:
		return "number"
	case 3:
		return "single_select"
	case 4:
		return "multi_select"
	case 5:
		return "date"
	case 11:
		return "person"
	case 15:
		return "url"
	default:
		return "text"
	}
}

func (c *HTTPClient) Search(ctx context.Context, tableID string, view string, ignoreDefaultView bool, pageSize int, pageToken string) (*SearchResult, error) {
	body := map[string]any{
		"view_id":             view,
		"ignore_default_view": ignoreDefaultView,
		"page_size":           pageSize,
		"page_token":          pageToken,
	}
	return c.searchRequest(ctx, "search", tableID, body)
}

func (c *HTTPClient) SearchExact(ctx context.Context, tableID, field string, value any) (*SearchResult, error) {
	body := map[string]any{
		"filter": map[string]any{
			"conjunction": "and",
			"conditions": []map[string]any{
				{"field_name": field, "operator": "is", "value": []any{value}},
			},
		},
	}
	return c.searchRequest(ctx, "search_exact", tableID, body)
}

func (c *HTTPClient) SearchKeyword(ctx context.Context, tableID, keyword string, fields []string) (*SearchResult, error) {
	conditions := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		conditions = append(conditions, map[string]any{"field_name": f, "operator": "contains", "value": []any{keyword}})
	}
	body := map[string]any{
		"filter": map[string]any{"conjunction": "or", "conditions": conditions},
	}
	return c.searchRequest(ctx, "search_keyword", tableID, body)
}

func (c *HTTPClient) SearchPerson(ctx context.Context, tableID, field, openID, userName string) (*SearchResult, error) {
	value := openID
	if value == "" {
		value = userName
	}
	return c.SearchExact(ctx, tableID, field, value)
}

func (c *HTTPClient) SearchDateRange(ctx context.Context, tableID, field string, from, to time.Time, timeFrom, timeTo string) (*SearchResult, error) {
	conditions := []map[string]any{}
	if !from.IsZero() {
		conditions = append(conditions, map[string]any{"field_name": field, "operator": "isGreaterEqual", "value": []any{from.UnixMilli()}})
	}
	if !to.IsZero() {
		conditions = append(conditions, map[string]any{"field_name": field, "operator": "isLess", "value": []any{to.UnixMilli()}})
	}
	body := map[string]any{
		"filter": map[string]any{"conjunction": "and", "conditions": conditions},
	}
	return c.searchRequest(ctx, "search_date_range", tableID, body)
}

func (c *HTTPClient) SearchAdvanced(ctx context.Context, tableID string, conds []AdvancedCondition, conjunction Conjunction) (*SearchResult, error) {
	conditions := make([]map[string]any, 0, len(conds))
	for _, cond := range conds {
		conditions = append(conditions, map[string]any{"field_name": cond.Field, "operator": cond.Op, "value": []any{cond.Value}})
	}
	body := map[string]any{
		"filter": map[string]any{"conjunction": string(conjunction), "conditions": conditions},
	}
	return c.searchRequest(ctx, "search_advanced", tableID, body)
}

func (c *HTTPClient) searchRequest(ctx context.Context, operation, tableID string, body map[string]any) (*SearchResult, error) {
	resp, err := c.do(ctx, operation, http.MethodPost, fmt.Sprintf("/tables/%s/records/search", tableID), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Data struct {
			Items []struct {
				RecordID string         `json:"record_id"`
				Fields   map[string]any `json:"fields"`
			} `json:"items"`
			HasMore   bool   `json:"has_more"`
			PageToken string `json:"page_token"`
			Total     int    `json:"total"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, agenterr.General("failed to decode search response", err)
	}

	records := make([]models.Record, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		records = append(records, models.Record{
			RecordID: item.RecordID,
			TableID:  tableID,
			Fields:   toFieldValues(item.Fields),
		})
	}

	return &SearchResult{
		Records:   records,
		HasMore:   payload.Data.HasMore,
		PageToken: payload.Data.PageToken,
		Total:     payload.Data.Total,
	}, nil
}

func (c *HTTPClient) RecordGet(ctx context.Context, tableID, recordID string) (*models.Record, error) {
	resp, err := c.do(ctx, "record_get", http.MethodGet, fmt.Sprintf("/tables/%s/records/%s", tableID, recordID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeSingleRecord(resp.Body, tableID)
}

func (c *HTTPClient) RecordCreate(ctx context.Context, tableID string, fields map[string]models.FieldValue, idempotencyKey string) (*models.Record, error) {
	body := map[string]any{"fields": fromFieldValues(fields)}
	if idempotencyKey != "" {
		body["client_token"] = idempotencyKey
	}
	resp, err := c.do(ctx, "record_create", http.MethodPost, fmt.Sprintf("/tables/%s/records", tableID), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeSingleRecord(resp.Body, tableID)
}

func (c *HTTPClient) RecordUpdate(ctx context.Context, tableID, recordID string, fields map[string]models.FieldValue, idempotencyKey string) (*models.Record, error) {
	body := map[string]any{"fields": fromFieldValues(fields)}
	if idempotencyKey != "" {
		body["client_token"] = idempotencyKey
	}
	resp, err := c.do(ctx, "record_update", http.MethodPut, fmt.Sprintf("/tables/%s/records/%s", tableID, recordID), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeSingleRecord(resp.Body, tableID)
}

func (c *HTTPClient) RecordDelete(ctx context.Context, tableID, recordID string, idempotencyKey string) error {
	path := fmt.Sprintf("/tables/%s/records/%s", tableID, recordID)
	if idempotencyKey != "" {
		path += "?client_token=" + idempotencyKey
	}
	resp, err := c.do(ctx, "record_delete", http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func decodeSingleRecord(body io.Reader, tableID string) (*models.Record, error) {
	var payload struct {
		Data struct {
			Record struct {
				RecordID string         `json:"record_id"`
				Fields   map[string]any `json:"fields"`
			} `json:"record"`
		} `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, agenterr.General("failed to decode record response", err)
	}
	return &models.Record{
		RecordID: payload.Data.Record.RecordID,
		TableID:  tableID,
		Fields:   toFieldValues(payload.Data.Record.Fields),
	}, nil
}
