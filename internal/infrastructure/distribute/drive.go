// Package distribute ships rendered newsletters to external destinations.
package distribute

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"NewsletterBuilder/internal/ports"
)

// DriveUploader stores artifacts in Google Drive.
type DriveUploader struct {
	svc      *drive.Service
	folderID string
}

var _ ports.Distributor = (*DriveUploader)(nil)

// NewDriveUploader creates the Drive service; opts carry credentials. An
// empty folderID uploads into the account root.
func NewDriveUploader(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveUploader, error) {
	opts = append([]option.ClientOption{option.WithScopes(drive.DriveFileScope)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &DriveUploader{svc: svc, folderID: folderID}, nil
}

// Name implements ports.Distributor.
func (d *DriveUploader) Name() string { return "gdrive" }

// Distribute uploads the file and returns its Drive id.
func (d *DriveUploader) Distribute(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	meta := &drive.File{Name: filepath.Base(path)}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}

	created, err := d.svc.Files.Create(meta).
		Media(f, googleapi.ContentType(contentType(path))).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	return created.Id, nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return "application/epub+zip"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
