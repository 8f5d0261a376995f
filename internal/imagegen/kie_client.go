package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type KieOptions struct {
	BaseURL    string
	UploadURL  string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// KieClient talks to the KIE job-creation API and its file staging host.
type KieClient struct {
	httpClient *http.Client
	baseURL    string
	uploadURL  string
	token      string
}

func NewKieClient(opts KieOptions) *KieClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.kie.ai"
	}
	upload := strings.TrimSpace(opts.UploadURL)
	if upload == "" {
		upload = "https://kieai.redpandaai.co/api/file-base64-upload"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &KieClient{
		httpClient: client,
		baseURL:    base,
		uploadURL:  upload,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

type uploadRequest struct {
	Base64Data string `json:"base64Data"`
	Filename   string `json:"filename"`
	UploadPath string `json:"uploadPath"`
}

type uploadResp struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    struct {
		DownloadURL string `json:"downloadUrl"`
	} `json:"data"`
}

type createTaskRequest struct {
	Model       string    `json:"model"`
	CallBackURL string    `json:"callBackUrl"`
	Input       taskInput `json:"input"`
}

type taskInput struct {
	Prompt      string   `json:"prompt"`
	ImageURLs   []string `json:"image_urls"`
	AspectRatio string   `json:"aspect_ratio"`
	Quality     string   `json:"quality"`
}

type createTaskResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// UploadImage stages a base64 data URI and returns the hosted download URL.
// Upload failure is a recoverable condition for the caller, so every failure
// mode resolves to an error without retrying here.
func (c *KieClient) UploadImage(ctx context.Context, dataURI string) (string, error) {
	if c == nil {
		return "", errors.New("kie client not configured")
	}
	if c.token == "" {
		return "", errors.New("kie: API key is missing")
	}
	payload := uploadRequest{
		Base64Data: dataURI,
		Filename:   "upload.jpg",
		UploadPath: "temp",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: http %d", ErrUploadFailed, resp.StatusCode)
	}
	var out uploadResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if !out.Success || strings.TrimSpace(out.Data.DownloadURL) == "" {
		if out.Msg != "" {
			return "", fmt.Errorf("%w: %s", ErrUploadFailed, out.Msg)
		}
		return "", ErrUploadFailed
	}
	return out.Data.DownloadURL, nil
}

// CreateTask submits one generation job for the given model and returns the
// remote task ID. Transport failure, a non-200 status and an application-level
// rejection are all submission failures; the detail is preserved in the error.
func (c *KieClient) CreateTask(ctx context.Context, model, callbackURL, imageURL, prompt string) (string, error) {
	if c == nil {
		return "", errors.New("kie client not configured")
	}
	if c.token == "" {
		return "", errors.New("kie: API key is missing")
	}
	payload := createTaskRequest{
		Model:       model,
		CallBackURL: callbackURL,
		Input: taskInput{
			Prompt:      prompt,
			ImageURLs:   []string{imageURL},
			AspectRatio: "16:9",
			Quality:     "high",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	endpoint := c.baseURL + "/api/v1/jobs/createTask"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: http %d", ErrSubmitFailed, resp.StatusCode)
	}
	var out createTaskResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	if out.Code != 200 {
		return "", fmt.Errorf("%w: %s (code %d)", ErrSubmitFailed, out.Msg, out.Code)
	}
	if strings.TrimSpace(out.Data.TaskID) == "" {
		return "", fmt.Errorf("%w: missing task id", ErrSubmitFailed)
	}
	return out.Data.TaskID, nil
}
