package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// UploadFile stores an uploaded file under the given object key and returns
// its public URL. R2 is used when configured; otherwise files land in the
// local uploads/ directory served by the app's static route (dev fallback).
func UploadFile(fileHeader *multipart.FileHeader, key string) (string, error) {
	if r2Client != nil {
		return UploadFileToR2(fileHeader, key)
	}
	destPath := GetUploadPath(filepath.FromSlash(key))
	if err := SaveFile(fileHeader, destPath); err != nil {
		return "", fmt.Errorf("failed to save file locally: %w", err)
	}
	return "/uploads/" + key, nil
}

// DeleteFile removes a previously uploaded file by its public URL.
func DeleteFile(url string) error {
	if r2Client != nil {
		return DeleteFileFromR2(url)
	}
	key := strings.TrimPrefix(url, "/uploads/")
	if key == url || key == "" {
		return fmt.Errorf("url %q is not a local upload", url)
	}
	return os.Remove(GetUploadPath(filepath.FromSlash(key)))
}
