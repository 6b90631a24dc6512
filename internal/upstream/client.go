// Package upstream is the HTTP gateway to the complaint backend API. It is a
// thin wrapper: no business state lives here, every call forwards the
// caller's bearer token, and response shapes are normalized into explicit
// domain types before anything else sees them.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/reclamo/reclamo/internal/auth"
	"github.com/reclamo/reclamo/internal/domain"
	"github.com/reclamo/reclamo/internal/taxonomy"
)

const defaultTimeout = 30 * time.Second

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is the HTTP client for the upstream complaint API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an upstream client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categories fetches the category taxonomy. Called once per conversation.
func (c *Client) Categories(ctx context.Context) (taxonomy.Taxonomy, error) {
	var tax taxonomy.Taxonomy
	if err := c.getJSON(ctx, "/api/categories/", &tax); err != nil {
		return nil, err
	}
	return tax, nil
}

// TicketRequest is the complaint-creation payload.
type TicketRequest struct {
	Subject         string                  `json:"subject"`
	Description     string                  `json:"description"`
	Category        string                  `json:"category"`
	Subcategory     string                  `json:"subcategory,omitempty"`
	Priority        domain.Priority         `json:"priority"`
	AssignedTo      string                  `json:"assignedTo,omitempty"`
	ImageURL        string                  `json:"imageUrl,omitempty"`
	DetectedObjects []domain.DetectedObject `json:"detectedObjects,omitempty"`
}

// Ticket identifies a created ticket.
type Ticket struct {
	ID string
}

// createTicketResponse covers the id shapes the upstream has been observed to
// return. Exactly one of the fields is populated per response.
type createTicketResponse struct {
	Complaint *struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
	} `json:"complaint"`
	MongoID string `json:"_id"`
	ID      string `json:"id"`
}

func (r createTicketResponse) ticketID() string {
	if r.Complaint != nil {
		if r.Complaint.MongoID != "" {
			return r.Complaint.MongoID
		}
		return r.Complaint.ID
	}
	if r.MongoID != "" {
		return r.MongoID
	}
	return r.ID
}

// CreateTicket creates a complaint ticket and normalizes the returned id.
func (c *Client) CreateTicket(ctx context.Context, req TicketRequest) (Ticket, error) {
	var resp createTicketResponse
	if err := c.postJSON(ctx, "/api/complaints/", req, &resp); err != nil {
		return Ticket{}, err
	}

	id := resp.ticketID()
	if id == "" {
		return Ticket{}, domain.NewAPIError(domain.ErrorTypeServer, "upstream returned no ticket id")
	}
	return Ticket{ID: id}, nil
}

// ChatReply is the upstream response to a relayed chat message.
type ChatReply struct {
	Message       string `json:"message"`
	SuggestTicket bool   `json:"suggestTicket"`
	TicketCreated bool   `json:"ticketCreated"`
	TicketID      string `json:"ticketId"`
}

// RelayMessage forwards a user message to the upstream chatbot endpoint.
// messageType is "text" or "voice".
func (c *Client) RelayMessage(ctx context.Context, message, messageType string) (ChatReply, error) {
	body := map[string]string{"message": message, "messageType": messageType}
	var reply ChatReply
	if err := c.postJSON(ctx, "/api/chatbot/message", body, &reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// ImageReply is the upstream response to a relayed image.
type ImageReply struct {
	Message         string                  `json:"message"`
	DetectedObjects []domain.DetectedObject `json:"detectedObjects"`
	TicketCreated   bool                    `json:"ticketCreated"`
	TicketID        string                  `json:"ticketId"`
}

// RelayImage uploads an image for object detection and triage.
func (c *Client) RelayImage(ctx context.Context, filename string, image io.Reader) (ImageReply, error) {
	var reply ImageReply
	if err := c.postMultipart(ctx, "/api/chatbot/image", "image", filename, image, &reply); err != nil {
		return ImageReply{}, err
	}
	return reply, nil
}

// Transcribe uploads an audio clip and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var resp struct {
		Transcript string `json:"transcript"`
	}
	if err := c.postMultipart(ctx, "/api/chatbot/voice", "audio", filename, audio, &resp); err != nil {
		return "", err
	}
	return resp.Transcript, nil
}

// MarkIssueSolved reports that the canned solution worked, which triggers the
// upstream thank-you notification flow.
func (c *Client) MarkIssueSolved(ctx context.Context, category, subcategory string) error {
	body := map[string]string{"category": category, "subcategory": subcategory}
	return c.postJSON(ctx, "/api/chatbot/solved", body, nil)
}

// TicketStatus fetches the current status of a ticket.
func (c *Client) TicketStatus(ctx context.Context, ticketID string) (domain.TicketStatus, error) {
	var status domain.TicketStatus
	if err := c.getJSON(ctx, "/api/complaint-updates/status/"+ticketID, &status); err != nil {
		return domain.TicketStatus{}, err
	}
	if status.ID == "" {
		status.ID = ticketID
	}
	return status, nil
}

// MarkResolved marks a ticket resolved on behalf of the user.
func (c *Client) MarkResolved(ctx context.Context, ticketID string) error {
	return c.postJSON(ctx, "/api/complaint-updates/resolve/"+ticketID, struct{}{}, nil)
}

// Agents fetches the current agent roster. Never cached: assignment must see
// live availability and workload.
func (c *Client) Agents(ctx context.Context) ([]domain.Agent, error) {
	var agents []domain.Agent
	if err := c.getJSON(ctx, "/api/admin/agents", &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// Update is a ticket-status notification delivered by the polling endpoint.
type Update struct {
	ComplaintID  string `json:"complaintId"`
	TicketNumber string `json:"ticketNumber"`
	Message      string `json:"message"`
	Status       string `json:"status"`
}

// Updates fetches pending complaint-status notifications for the caller.
func (c *Client) Updates(ctx context.Context) ([]Update, error) {
	var updates []Update
	if err := c.getJSON(ctx, "/api/complaint-updates/updates", &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) postMultipart(ctx context.Context, path, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, out)
}

// do attaches the caller's token, checks its expiry locally, executes the
// request, and maps failures onto the canonical error taxonomy.
func (c *Client) do(req *http.Request, out any) error {
	tok, ok := auth.TokenFromContext(req.Context())
	if !ok {
		return domain.NewAPIError(domain.ErrorTypeAuthentication, "no token for upstream call")
	}
	if tok.Expired(time.Now()) {
		return domain.NewAPIError(domain.ErrorTypeAuthentication, "token expired")
	}
	req.Header.Set("Authorization", "Bearer "+tok.Raw)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewAPIError(domain.ErrorTypeNetwork, fmt.Sprintf("upstream unreachable: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewAPIError(domain.ErrorTypeNetwork, fmt.Sprintf("read upstream response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ErrorFromStatus(resp.StatusCode, upstreamMessage(respBody, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.NewAPIError(domain.ErrorTypeServer, fmt.Sprintf("decode upstream response: %v", err))
	}
	return nil
}

// upstreamMessage pulls the error string out of an upstream failure body,
// falling back to the status code when the body is not the usual shape.
func upstreamMessage(body []byte, statusCode int) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("upstream error (status %d)", statusCode)
}
