package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
)

var _ inventory.Notifier = (*Client)(nil)

// Client avisa por HTTP a la función de notificaciones (SMS a los partners) que una venta
// generó comisiones. La función resuelve destinatarios y montos por su cuenta.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

type commissionRequest struct {
	OrgID  string `json:"org_id"`
	SaleID string `json:"sale_id"`
}

// NewClient timeout <= 0 usa 10 s.
func NewClient(url, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{url: url, token: token, httpClient: &http.Client{Timeout: timeout}}
}

// NotifyCommission POST {org_id, sale_id}. Cualquier respuesta fuera de 2xx es error.
func (c *Client) NotifyCommission(ctx context.Context, orgID, movementID string) error {
	body, err := json.Marshal(commissionRequest{OrgID: orgID, SaleID: movementID})
	if err != nil {
		return fmt.Errorf("marshal notificación: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST notificación: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notificación HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
