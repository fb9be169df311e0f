package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://www.googleapis.com/drive/v3"
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3"

	fileFields = "id,name,mimeType,parents,webViewLink"
)

// RESTOptions configures the Drive v3 REST client.
type RESTOptions struct {
	BaseURL   string
	UploadURL string
	Timeout   time.Duration
}

// driveErrorBody is Drive's JSON error envelope.
type driveErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RESTClient talks to the Google Drive v3 REST API. The passed http.Client
// must already carry authorization (see NewHTTPClient).
type RESTClient struct {
	httpClient *resty.Client
	uploadURL  string
	logger     *zap.Logger
}

var _ Remote = (*RESTClient)(nil)

func NewRESTClient(hc *http.Client, opts RESTOptions, logger *zap.Logger) *RESTClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UploadURL == "" {
		opts.UploadURL = DefaultUploadURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	// No SetRetryCount: failed calls surface to the caller immediately.
	client := resty.NewWithClient(hc).
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	return &RESTClient{
		httpClient: client,
		uploadURL:  opts.UploadURL,
		logger:     logger,
	}
}

func (c *RESTClient) ListFiles(ctx context.Context, q Query, opts ListOptions) ([]File, error) {
	params := map[string]string{
		"q":      q.String(),
		"spaces": "drive",
		"fields": "files(" + fileFields + ")",
	}
	if opts.OrderBy != "" {
		params["orderBy"] = opts.OrderBy
	}
	if opts.PageSize > 0 {
		params["pageSize"] = strconv.Itoa(opts.PageSize)
	}

	var result struct {
		Files []File `json:"files"`
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&driveErrorBody{}).
		Get("/files")
	if err := c.check("list", resp, err); err != nil {
		return nil, err
	}

	c.logger.Debug("Drive files listed",
		zap.String("q", params["q"]),
		zap.Int("count", len(result.Files)),
	)
	return result.Files, nil
}

func (c *RESTClient) CreateFile(ctx context.Context, meta FileMeta, media io.Reader) (File, error) {
	var created File
	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("fields", fileFields).
		SetResult(&created).
		SetError(&driveErrorBody{})

	var (
		resp *resty.Response
		err  error
	)
	if media == nil {
		resp, err = req.SetHeader("Content-Type", "application/json").SetBody(meta).Post("/files")
	} else {
		body, contentType, buildErr := multipartRelated(meta, media)
		if buildErr != nil {
			return File{}, buildErr
		}
		resp, err = req.
			SetQueryParam("uploadType", "multipart").
			SetHeader("Content-Type", contentType).
			SetBody(body).
			Post(c.uploadURL + "/files")
	}
	if err := c.check("create", resp, err); err != nil {
		return File{}, err
	}

	c.logger.Info("Drive file created",
		zap.String("file_id", created.ID),
		zap.String("name", created.Name),
		zap.String("mime_type", created.MimeType),
	)
	return created, nil
}

func (c *RESTClient) DeleteFile(ctx context.Context, id string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("fileId", id).
		SetError(&driveErrorBody{}).
		Delete("/files/{fileId}")
	return c.check("delete", resp, err)
}

func (c *RESTClient) DownloadFile(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("fileId", id).
		SetQueryParam("alt", "media").
		SetError(&driveErrorBody{}).
		Get("/files/{fileId}")
	if err := c.check("download", resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *RESTClient) SetPublicPermission(ctx context.Context, id string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("fileId", id).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"role": "reader", "type": "anyone"}).
		SetError(&driveErrorBody{}).
		Post("/files/{fileId}/permissions")
	return c.check("permission", resp, err)
}

func (c *RESTClient) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Error("Drive API call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("drive %s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{Op: op, StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*driveErrorBody); ok && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
	}
	c.logger.Error("Drive API returned error",
		zap.String("op", op),
		zap.Int("status_code", apiErr.StatusCode),
		zap.String("message", apiErr.Message),
	)
	return apiErr
}

// multipartRelated builds the metadata+media body for uploadType=multipart.
func multipartRelated(meta FileMeta, media io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, "", fmt.Errorf("build upload body: %w", err)
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, "", fmt.Errorf("encode file metadata: %w", err)
	}

	mediaType := meta.MimeType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mediaType}})
	if err != nil {
		return nil, "", fmt.Errorf("build upload body: %w", err)
	}
	if _, err := io.Copy(mediaPart, media); err != nil {
		return nil, "", fmt.Errorf("read upload media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("build upload body: %w", err)
	}
	return buf.Bytes(), "multipart/related; boundary=" + mw.Boundary(), nil
}
