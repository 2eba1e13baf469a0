package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mediarelay/internal/logging"
	"mediarelay/internal/relay"
	"mediarelay/internal/services"
)

const defaultBaseURL = "https://api.telegram.org"

// Options configures a Client.
type Options struct {
	Token   string
	BaseURL string
	// RequestTimeout bounds JSON calls; UploadTimeout bounds media uploads.
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	// RatePerSecond of zero disables limiting.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// APIError is a response with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("telegram %s failed (%d): %s", e.Method, e.Code, e.Description)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %ds)", e.RetryAfter)
	}
	return msg
}

// Client calls the Bot API.
type Client struct {
	baseURL        string
	token          string
	http           *http.Client
	limiter        *rate.Limiter
	requestTimeout time.Duration
	uploadTimeout  time.Duration
	logger         *slog.Logger
}

var _ relay.Gateway = (*Client)(nil)

// NewClient constructs a Client.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "telegram", "init", "bot token is required", nil)
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "telegram", "init", "invalid api base url", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:        base,
		token:          token,
		http:           httpClient,
		limiter:        rate.NewLimiter(limit, burst),
		requestTimeout: opts.RequestTimeout,
		uploadTimeout:  opts.UploadTimeout,
		logger:         logging.NewComponentLogger(opts.Logger, "telegram"),
	}, nil
}

// Bot describes the authenticated bot account.
type Bot struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"first_name"`
}

// GetMe validates the token and returns the bot identity.
func (c *Client) GetMe(ctx context.Context) (Bot, error) {
	var bot Bot
	err := c.call(ctx, "getMe", struct{}{}, &bot)
	return bot, err
}

// Username returns the bot's @handle without the leading @.
func (c *Client) Username(ctx context.Context) (string, error) {
	bot, err := c.GetMe(ctx)
	if err != nil {
		return "", err
	}
	return bot.Username, nil
}

type sentMessage struct {
	MessageID int `json:"message_id"`
}

// SendText posts a plain text message and returns its id.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	var msg sentMessage
	err := c.call(ctx, "sendMessage", map[string]any{"chat_id": chatID, "text": text}, &msg)
	return msg.MessageID, err
}

// SendVideo uploads a video with an optional caption and inline controls.
func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string, controls []relay.Control) error {
	fields := map[string]string{
		"chat_id":            strconv.FormatInt(chatID, 10),
		"supports_streaming": "true",
	}
	if caption != "" {
		fields["caption"] = caption
	}
	if len(controls) > 0 {
		markup, err := json.Marshal(keyboard(controls))
		if err != nil {
			return services.Wrap(services.ErrValidation, "telegram", "sendVideo", "encode reply markup", err)
		}
		fields["reply_markup"] = string(markup)
	}
	return c.upload(ctx, "sendVideo", fields, "video", path)
}

// SendPhoto uploads a photo with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	fields := map[string]string{"chat_id": strconv.FormatInt(chatID, 10)}
	if caption != "" {
		fields["caption"] = caption
	}
	return c.upload(ctx, "sendPhoto", fields, "photo", path)
}

// SendAudio uploads an audio file with a title.
func (c *Client) SendAudio(ctx context.Context, chatID int64, path, title string) error {
	fields := map[string]string{"chat_id": strconv.FormatInt(chatID, 10)}
	if title != "" {
		fields["title"] = title
	}
	return c.upload(ctx, "sendAudio", fields, "audio", path)
}

// AnswerCallback acknowledges a control press, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// DeleteMessage removes a message the bot sent.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.call(ctx, "deleteMessage", map[string]any{"chat_id": chatID, "message_id": messageID}, nil)
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	err := c.callWithTimeout(ctx, "getUpdates", payload, &updates, timeout+c.requestTimeout)
	return updates, err
}

// DeleteWebhook clears a registered webhook so long polling can start.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": false}, nil)
}

// SetWebhook registers url as the update endpoint.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	payload := map[string]any{
		"url":             webhookURL,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func keyboard(controls []relay.Control) inlineKeyboard {
	row := make([]inlineButton, 0, len(controls))
	for _, control := range controls {
		row = append(row, inlineButton{Text: control.Label, CallbackData: control.Data})
	}
	return inlineKeyboard{InlineKeyboard: [][]inlineButton{row}}
}

func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	return c.callWithTimeout(ctx, method, payload, result, c.requestTimeout)
}

func (c *Client) callWithTimeout(ctx context.Context, method string, payload, result any, timeout time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, "telegram", method, "encode payload", err)
	}
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return services.Wrap(services.ErrTimeout, "telegram", method, "rate limiter", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrValidation, "telegram", method, "build request", c.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, result)
}

func (c *Client) upload(ctx context.Context, method string, fields map[string]string, fileField, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "telegram", method, "open upload", err)
	}
	defer file.Close()

	ctx, cancel := withTimeout(ctx, c.uploadTimeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return services.Wrap(services.ErrTimeout, "telegram", method, "rate limiter", err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(writer, fields, fileField, filepath.Base(path), file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return services.Wrap(services.ErrValidation, "telegram", method, "build request", c.redact(err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	err = c.do(req, method, nil)
	_ = pr.Close()
	return err
}

func writeMultipart(writer *multipart.Writer, fields map[string]string, fileField, filename string, file io.Reader) error {
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile(fileField, filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return writer.Close()
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (c *Client) do(req *http.Request, method string, result any) error {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		err = c.redact(err)
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "telegram", method, "request timed out", err)
		}
		return services.Wrap(services.ErrTransient, "telegram", method, "request failed", err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10*1024*1024)).Decode(&envelope); err != nil {
		return services.Wrap(services.ErrExternalTool, "telegram", method, fmt.Sprintf("decode response (status %d)", resp.StatusCode), err)
	}
	if !envelope.OK {
		apiErr := &APIError{
			Method:      method,
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
			RetryAfter:  envelope.Parameters.RetryAfter,
		}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		return services.Wrap(services.ErrExternalTool, "telegram", method, "api error", apiErr)
	}
	c.logger.Debug("telegram call", logging.String("method", method), logging.Duration("elapsed", time.Since(started)))
	if result == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return services.Wrap(services.ErrExternalTool, "telegram", method, "decode result", err)
	}
	return nil
}

func (c *Client) endpoint(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// redact strips the bot token from transport errors, which embed the URL.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, c.token, "<token>")
	}
	return err
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
