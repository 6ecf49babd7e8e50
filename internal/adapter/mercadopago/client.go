package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.mercadopago.com"

type Config struct {
	AccessToken     string
	BaseURL         string // override for tests
	SuccessURL      string
	FailureURL      string
	PendingURL      string
	NotificationURL string
}

// Client talks to the Mercado Pago REST API: preference creation on checkout
// and payment reads during reconciliation.
type Client struct {
	http *http.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		http: &http.Client{Timeout: 10 * time.Second},
		cfg:  cfg,
	}
}

type preferenceItem struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CurrencyID string          `json:"currency_id"`
}

type preferenceRequest struct {
	Items             []preferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	Metadata          map[string]string `json:"metadata"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	NotificationURL   string            `json:"notification_url,omitempty"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (c *Client) CreatePreference(ctx context.Context, a *domain.StagedAttempt) (*usecase.Preference, error) {
	// Preference item quantities are integers on the processor side, so
	// fractional-kg lines are folded into the line price with quantity 1.
	items := make([]preferenceItem, 0, len(a.Items)+1)
	for _, l := range a.Items {
		items = append(items, preferenceItem{
			ID:         l.ProductID,
			Title:      fmt.Sprintf("%s x %s%s", l.ProductName, l.Quantity, unitSuffix(l.Unit)),
			Quantity:   1,
			UnitPrice:  l.Subtotal(),
			CurrencyID: "ARS",
		})
	}
	if a.Delivery.Mode == domain.ModeDelivery {
		shipping := a.Total
		for _, l := range a.Items {
			shipping = shipping.Sub(l.Subtotal())
		}
		if shipping.IsPositive() {
			items = append(items, preferenceItem{
				ID:         "envio",
				Title:      "Envío " + a.Delivery.Zone,
				Quantity:   1,
				UnitPrice:  shipping,
				CurrencyID: "ARS",
			})
		}
	}

	req := preferenceRequest{
		Items:             items,
		ExternalReference: a.StagingToken,
		Metadata: map[string]string{
			"staging_token":  a.StagingToken,
			"payment_method": string(a.PaymentMethod),
		},
		NotificationURL: c.cfg.NotificationURL,
	}
	if c.cfg.SuccessURL != "" {
		req.BackURLs = map[string]string{
			"success": c.cfg.SuccessURL,
			"failure": c.cfg.FailureURL,
			"pending": c.cfg.PendingURL,
		}
		req.AutoReturn = "approved"
	}

	var resp preferenceResponse
	if _, err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.InitPoint == "" {
		return nil, fmt.Errorf("%w: preference response missing id or init_point", usecase.ErrProcessorUnavailable)
	}
	return &usecase.Preference{ID: resp.ID, RedirectURL: resp.InitPoint}, nil
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount float64     `json:"transaction_amount"`
	ExternalReference string      `json:"external_reference"`
	Metadata          struct {
		StagingToken  string `json:"staging_token"`
		PaymentMethod string `json:"payment_method"`
	} `json:"metadata"`
	Payer struct {
		Email string `json:"email"`
	} `json:"payer"`
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	var resp paymentResponse
	raw, err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp)
	if err != nil {
		return nil, err
	}

	// Correlation data is decoded exactly once, here at the boundary. The
	// metadata keys win; external_reference is the fallback for older
	// preferences that only carried the token there.
	corr := domain.CorrelationData{
		StagingToken:  resp.Metadata.StagingToken,
		PaymentMethod: resp.Metadata.PaymentMethod,
	}
	if corr.StagingToken == "" {
		corr.StagingToken = resp.ExternalReference
	}

	return &domain.PaymentRecord{
		ID:          resp.ID.String(),
		Status:      mapStatus(resp.Status),
		Amount:      decimal.NewFromFloat(resp.TransactionAmount),
		PayerEmail:  resp.Payer.Email,
		Correlation: corr,
		RawPayload:  raw,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", usecase.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", usecase.ErrProcessorUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s returned %d", usecase.ErrProcessorUnavailable, method, path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", usecase.ErrProcessorUnavailable, err)
	}
	return raw, nil
}

func mapStatus(s string) domain.PaymentStatus {
	switch s {
	case "approved":
		return domain.PaymentApproved
	case "rejected", "cancelled", "refunded", "charged_back":
		return domain.PaymentRejected
	default: // pending, in_process, authorized, ...
		return domain.PaymentPending
	}
}

func unitSuffix(u domain.Unit) string {
	switch u {
	case domain.UnitKg:
		return "kg"
	case domain.UnitSheet:
		return " plancha(s)"
	default:
		return " u."
	}
}

var _ usecase.PaymentGateway = (*Client)(nil)
