// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageBytes is the largest image file accepted as an attachment.
const MaxImageBytes = 20 * 1024 * 1024

// ErrUnsupportedImage is returned for files whose extension is not a known
// image type.
var ErrUnsupportedImage = errors.New("unsupported image format")

// ImageDataURI resolves an attachment reference into the url of an image
// content block. http(s) URLs are returned unchanged; anything else is read
// as a local file (a leading "~/" expands to the home directory) and encoded
// as a base64 data URI.
func ImageDataURI(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty image reference")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return ref, nil
	}

	path, err := ExpandHome(ref)
	if err != nil {
		return "", err
	}

	mediaType := ImageMediaType(filepath.Ext(path))
	if mediaType == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > MaxImageBytes {
		return "", fmt.Errorf("image %s exceeds %d MB limit", info.Name(), MaxImageBytes/(1024*1024))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ImageMediaType maps a file extension to its image MIME type, or "" when
// the extension is not a supported image.
func ImageMediaType(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
