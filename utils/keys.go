package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// EventImageKey builds the R2 object key for an event image: a slug of the
// event name for readable URLs plus a uuid so re-uploads never collide.
func EventImageKey(eventName string, file *multipart.FileHeader) string {
	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	name := slug.Make(eventName)
	if name == "" {
		name = "event"
	}
	return fmt.Sprintf("events/%s-%s%s", name, uuid.NewString(), ext)
}
