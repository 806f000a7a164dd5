package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// StorageService stores avatar images and returns their public URL.
type StorageService interface {
	UploadFile(ctx context.Context, file multipart.File, filename string, folder string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}

// SupabaseStorageService talks to the Supabase Storage REST API with the
// service role key.
type SupabaseStorageService struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseStorageService(baseURL, bucket, serviceKey string) *SupabaseStorageService {
	return &SupabaseStorageService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SupabaseStorageService) UploadFile(ctx context.Context, file multipart.File, filename string, folder string) (string, error) {
	objectPath := path.Join(strings.Trim(folder, "/"), filename)

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(objectPath), bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("x-upsert", "true")
	req.Header.Set("Content-Type", http.DetectContentType(content))

	if err := s.do(req, "upload avatar", false); err != nil {
		return "", err
	}
	return s.PublicURL(objectPath), nil
}

// DeleteFile removes the object behind a URL produced by UploadFile. A
// missing object is not an error.
func (s *SupabaseStorageService) DeleteFile(ctx context.Context, fileURL string) error {
	objectPath, err := s.ObjectPath(fileURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(objectPath), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	return s.do(req, "delete avatar", true)
}

func (s *SupabaseStorageService) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, objectPath)
}

// ObjectPath extracts the bucket relative path from a public or private
// object URL of the configured bucket.
func (s *SupabaseStorageService) ObjectPath(fileURL string) (string, error) {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}

	for _, prefix := range []string{
		"/storage/v1/object/public/" + s.bucket + "/",
		"/storage/v1/object/" + s.bucket + "/",
	} {
		if strings.HasPrefix(parsed.Path, prefix) {
			return strings.TrimPrefix(parsed.Path, prefix), nil
		}
	}
	return "", fmt.Errorf("file url does not belong to bucket %q", s.bucket)
}

func (s *SupabaseStorageService) objectURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, objectPath)
}

func (s *SupabaseStorageService) do(req *http.Request, action string, allowNotFound bool) error {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	if allowNotFound && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s: status %d: %s", action, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
