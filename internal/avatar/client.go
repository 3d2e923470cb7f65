// Package avatar stores member profile images in Cloudinary.
package avatar

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"meettrack/internal/apperr"
)

// MaxBytes caps avatar uploads at 500KB.
const MaxBytes = 500 * 1024

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// Client uploads avatar images to Cloudinary using their REST API.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	HTTP      *http.Client
}

// New creates a Cloudinary-backed avatar client.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Result holds the response from Cloudinary after a successful upload.
type Result struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// Upload validates and uploads raw image bytes, returning the hosted URL.
func (c *Client) Upload(data []byte, filename string) (*Result, error) {
	if len(data) == 0 {
		return nil, apperr.Invalid("Avatar file is empty")
	}
	if len(data) > MaxBytes {
		return nil, apperr.Invalid("Avatar must be at most 500KB")
	}
	if !allowedTypes[sniffType(data)] {
		return nil, apperr.Invalid("Invalid mime type")
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
		"api_key":   c.APIKey,
	}
	if c.Folder != "" {
		params["folder"] = c.Folder
	}
	params["signature"] = c.sign(params)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, apperr.Internal(err)
	}
	w.Close()

	url := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", c.CloudName)
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, apperr.Internal(fmt.Errorf("avatar upload failed (%d): %s", resp.StatusCode, string(body)))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperr.Internal(err)
	}
	return &result, nil
}

func sniffType(data []byte) string {
	t := http.DetectContentType(data)
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return t
}

// sign computes the Cloudinary API signature from the given params.
// api_key and file are excluded from the signature per Cloudinary's signing rules.
func (c *Client) sign(params map[string]string) string {
	excludeKeys := map[string]bool{"api_key": true, "file": true, "resource_type": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !excludeKeys[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	payload := strings.Join(pairs, "&") + c.APISecret
	h := sha1.New()
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}
