package siliconflow

import (
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// fileDataURL encodes the invoice file as a data URL for the vision API.
// PDFs are sent with their document MIME type; images use the type guessed
// from the extension. An unrecognized extension yields an empty URL, which
// the caller treats as "no usable output" for this file.
func fileDataURL(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType := ""
	switch ext {
	case ".pdf":
		mimeType = "application/pdf"
	default:
		mimeType = mime.TypeByExtension(ext)
	}
	if mimeType == "" || (!strings.HasPrefix(mimeType, "image/") && mimeType != "application/pdf") {
		return "", nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return "data:" + mimeType + ";base64," + encoded, nil
}
