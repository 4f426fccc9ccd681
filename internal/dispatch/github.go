package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lighthouse-checkout/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrNotConfigured is returned when no workflow token is set.
var ErrNotConfigured = errors.New("GitHub token not configured")

// Error is a non-2xx answer from the workflow dispatch endpoint.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("workflow dispatch failed with status %d: %s", e.StatusCode, e.Body)
}

const maxErrorBody = 64 * 1024

type Options struct {
	Token        string
	APIURL       string
	Repository   string
	WorkflowFile string
	Ref          string
}

// WorkflowClient triggers the license generation workflow.
type WorkflowClient struct {
	opts Options
	base *http.Client
}

// NewWorkflowClient returns a client. base may be nil; it is wrapped with the
// bearer token transport on every call.
func NewWorkflowClient(opts Options, base *http.Client) *WorkflowClient {
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	return &WorkflowClient{opts: opts, base: base}
}

type dispatchBody struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

// Dispatch sends exactly one workflow_dispatch request.
func (c *WorkflowClient) Dispatch(ctx context.Context, req domain.LicenseRequest) error {
	if strings.TrimSpace(c.opts.Token) == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(dispatchBody{
		Ref: c.opts.Ref,
		Inputs: map[string]string{
			"name":         req.Name,
			"email":        req.Email,
			"organization": req.Organization,
			"expiry":       req.Expiry,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode dispatch body: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/actions/workflows/%s/dispatches", c.opts.APIURL, c.opts.Repository, c.opts.WorkflowFile)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient(ctx).Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call workflow dispatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	log.WithFields(log.Fields{
		"repository": c.opts.Repository,
		"workflow":   c.opts.WorkflowFile,
		"status":     resp.StatusCode,
	}).Debug("Workflow dispatch accepted")
	return nil
}

func (c *WorkflowClient) httpClient(ctx context.Context) *http.Client {
	if c.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.opts.Token}))
}
