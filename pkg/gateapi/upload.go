package gateapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"net/http"
	"strings"

	"github.com/gen2brain/heic"
)

// MaxUploadBytes is the client-side ceiling on a single document upload.
const MaxUploadBytes = 5 << 20 // 5 MiB

// Upload validation errors. These are field-level validation failures and
// must be surfaced inline, never through the global alert channel.
var (
	ErrFileTooLarge = errors.New("gateapi: file exceeds 5MB limit")
	ErrFileType     = errors.New("gateapi: file type not allowed")
)

// ImageType is the sniffed content type of an upload candidate.
type ImageType string

const (
	ImageJPEG ImageType = "image/jpeg"
	ImagePNG  ImageType = "image/png"
	ImageHEIC ImageType = "image/heic"
	ImageHEIF ImageType = "image/heif"
)

// DetectImageType sniffs the upload's content type from its magic bytes.
// HEIC/HEIF containers are ISO-BMFF files whose brand sits in the ftyp box,
// which net/http's sniffer does not understand, so they are checked first.
func DetectImageType(data []byte) (ImageType, error) {
	if t, ok := detectHEIF(data); ok {
		return t, nil
	}

	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ImageJPEG, nil
	case "image/png":
		return ImagePNG, nil
	}
	return "", ErrFileType
}

// detectHEIF checks for an ISO-BMFF ftyp box with a heic/heif brand.
func detectHEIF(data []byte) (ImageType, bool) {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return "", false
	}
	brand := strings.ToLower(string(data[8:12]))
	switch brand {
	case "heic", "heix", "hevc", "hevx":
		return ImageHEIC, true
	case "heif", "mif1", "msf1":
		return ImageHEIF, true
	}
	return "", false
}

// ValidateUpload enforces the pre-upload contract: at most MaxUploadBytes
// and one of the allowed image types.
func ValidateUpload(data []byte) (ImageType, error) {
	if len(data) > MaxUploadBytes {
		return "", ErrFileTooLarge
	}
	return DetectImageType(data)
}

// NormalizeUpload validates the data and converts HEIC/HEIF payloads to
// JPEG; JPEG and PNG pass through untouched. Returns the bytes to upload
// and their content type.
func NormalizeUpload(data []byte) ([]byte, ImageType, error) {
	typ, err := ValidateUpload(data)
	if err != nil {
		return nil, "", err
	}
	if typ != ImageHEIC && typ != ImageHEIF {
		return data, typ, nil
	}

	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("gateapi: decode heic: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", fmt.Errorf("gateapi: encode jpeg: %w", err)
	}
	if buf.Len() > MaxUploadBytes {
		return nil, "", ErrFileTooLarge
	}
	return buf.Bytes(), ImageJPEG, nil
}

// UploadBlob PUTs the document directly to a pre-signed blob-storage URL.
// The x-ms-blob-type header is mandatory for block blob uploads. Uploads
// share the mint deadline; the shorter general-call deadline would cut off
// large documents on slow links.
func (c *Client) UploadBlob(ctx context.Context, presignedURL string, data []byte, contentType ImageType) error {
	deadline := c.MintTimeout
	if deadline <= 0 {
		deadline = MintTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", string(contentType))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "blob upload failed"}
	}
	return nil
}
