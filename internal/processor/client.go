package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient talks to the payment network's REST API. It only covers the two
// calls this service needs; everything else the network does reaches us as
// pushed settlement events.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a processor client with a bounded request timeout.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type paymentMethodResponse struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Last4 string `json:"last4"`
}

type collectionRequestBody struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Customer      string            `json:"customer"`
	PaymentMethod string            `json:"payment_method"`
	MethodTypes   []string          `json:"payment_method_types"`
	PlatformFee   int64             `json:"application_fee_amount"`
	Destination   string            `json:"destination"`
	ReceiptEmail  string            `json:"receipt_email,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CaptureMethod string            `json:"capture_method"`
	ConfirmNow    bool              `json:"confirm"`
}

type collectionResponseBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *HTTPClient) GetPaymentMethod(ctx context.Context, ref string) (*PaymentMethod, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payment_methods/"+ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment method request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment method lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var body paymentMethodResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode payment method response: %w", err)
	}

	kind := MethodKindCard
	if body.Type == "us_bank_account" || body.Type == "bank_debit" {
		kind = MethodKindBankDebit
	}

	return &PaymentMethod{Ref: body.ID, Kind: kind, Last4: body.Last4}, nil
}

func (c *HTTPClient) CreateCollection(ctx context.Context, colReq *CollectionRequest) (*CollectionResult, error) {
	body := collectionRequestBody{
		Amount:        colReq.AmountCents,
		Currency:      colReq.Currency,
		Customer:      colReq.PayerRef,
		PaymentMethod: colReq.PaymentMethodRef,
		MethodTypes:   []string{string(colReq.MethodKind)},
		PlatformFee:   colReq.PlatformFeeCents,
		Destination:   colReq.DestinationAccountRef,
		ReceiptEmail:  colReq.ReceiptEmail,
		Metadata:      colReq.Metadata,
		CaptureMethod: "automatic",
		ConfirmNow:    true,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/collections", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build collection request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", colReq.IdempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var respBody collectionResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode collection response: %w", err)
	}

	return &CollectionResult{
		Status:      Status(respBody.Status),
		ExternalRef: respBody.ID,
	}, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var body collectionResponseBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil {
		return &Error{Code: body.Error.Code, Message: body.Error.Message}
	}

	return &Error{
		Code:    fmt.Sprintf("http_%d", resp.StatusCode),
		Message: string(raw),
	}
}
