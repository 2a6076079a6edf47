package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

var ErrNotHTML = errors.New("linkpreview: response is not HTML")

const userAgent = "Mozilla/5.0 (compatible; TherapyPunchBot/1.0; +https://bsky.app)"

type Options struct {
	// HTTPClient replaces the default SSRF-guarded client.
	HTTPClient  *http.Client
	Timeout     time.Duration
	MaxBodySize int64
	// ExcerptLength is the rune budget of Preview.Excerpt.
	ExcerptLength int
}

type Fetcher struct {
	httpClient    *http.Client
	timeout       time.Duration
	maxBodySize   int64
	excerptLength int
	logger        *logrus.Logger
}

func NewFetcher(opts Options, logger *logrus.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 2 * 1024 * 1024
	}
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = 300
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: ssrfDialContext,
			},
		}
	}
	return &Fetcher{
		httpClient:    httpClient,
		timeout:       opts.Timeout,
		maxBodySize:   opts.MaxBodySize,
		excerptLength: opts.ExcerptLength,
		logger:        logger,
	}
}

// Preview fetches rawURL and extracts its title, description and a short
// text excerpt.
func (f *Fetcher) Preview(ctx context.Context, rawURL string) (*Preview, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch URL: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsHTML(contentType) {
		return nil, ErrNotHTML
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodySize), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}

	preview, err := extract(body, f.excerptLength)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	preview.URL = rawURL

	f.logger.WithFields(logrus.Fields{
		"url":   rawURL,
		"title": preview.Title,
	}).Debug("Fetched link preview")

	return preview, nil
}

func ssrfDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}

	for _, ip := range ips {
		if isPrivateIP(ip.IP) {
			return nil, fmt.Errorf("SSRF protection: cannot connect to private IP %s", ip.IP)
		}
	}

	// Dial the vetted address so a second lookup cannot rebind.
	d := net.Dialer{}
	return d.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

func IsHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
