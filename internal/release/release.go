package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Platforms with a prebuilt download archive.
var Platforms = map[string]string{
	"windows": "Lighthouse-win-x64.zip",
	"macos":   "Lighthouse-osx-x64.zip",
	"linux":   "Lighthouse-linux-x64.zip",
}

type Options struct {
	APIURL     string
	Repository string
	Fallback   string
	CacheTTL   time.Duration
}

// Client looks up the latest published release tag. Lookups never fail: any
// error yields the fallback version.
type Client struct {
	opts       Options
	httpClient *http.Client
	group      singleflight.Group
	now        func() time.Time

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

const (
	// failureTTL keeps the fallback for a short while after a failed lookup.
	failureTTL   = time.Minute
	fetchTimeout = 5 * time.Second
)

func NewClient(opts Options, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	return &Client{opts: opts, httpClient: httpClient, now: time.Now}
}

type latestRelease struct {
	TagName string `json:"tag_name"`
}

// Latest returns the cached tag or looks it up. The lookup is shared by
// concurrent callers and is not tied to any one caller's cancellation.
func (c *Client) Latest(ctx context.Context) string {
	c.mu.Lock()
	if c.cached != "" && c.now().Before(c.expiresAt) {
		tag := c.cached
		c.mu.Unlock()
		return tag
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("latest", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})
	if err != nil {
		log.WithError(err).WithField("fallback", c.opts.Fallback).Warn("Failed to fetch latest version")
		c.store(c.opts.Fallback, failureTTL)
		return c.opts.Fallback
	}

	tag := v.(string)
	c.store(tag, c.opts.CacheTTL)
	return tag
}

func (c *Client) store(tag string, ttl time.Duration) {
	c.mu.Lock()
	c.cached = tag
	c.expiresAt = c.now().Add(ttl)
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.opts.APIURL, c.opts.Repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var rel latestRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", fmt.Errorf("decode release: %w", err)
	}
	if rel.TagName == "" {
		return "", fmt.Errorf("release has no tag")
	}
	return rel.TagName, nil
}

// DownloadURLs returns the per-platform archive URLs for a tag.
func (c *Client) DownloadURLs(tag string) map[string]string {
	base := fmt.Sprintf("https://github.com/%s/releases/download/%s", c.opts.Repository, tag)
	urls := make(map[string]string, len(Platforms))
	for platform, file := range Platforms {
		urls[platform] = base + "/" + file
	}
	return urls
}
