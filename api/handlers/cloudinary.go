package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ImageHost uploads one image and returns its hosted URL. Report ingestion
// depends on this interface so tests can swap the real uploader out.
type ImageHost interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
}

type cloudinaryHost struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryHost builds an ImageHost backed by cloudinary. Returns nil
// when no CLOUDINARY_URL is configured; ingestion then rejects image uploads.
func NewCloudinaryHost(cloudinaryURL string) (ImageHost, error) {
	if cloudinaryURL == "" {
		return nil, nil
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	return &cloudinaryHost{cld: cld}, nil
}

func (c *cloudinaryHost) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: "accident-reports",
	})
	if err != nil {
		return "", err
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary returned empty url for %s", filename)
	}
	return resp.SecureURL, nil
}

// CloudinaryHandler handles Cloudinary related requests
type CloudinaryHandler struct{}

// GenerateSignature generates a signature for Cloudinary uploads
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	uploadPreset := os.Getenv("CLOUDINARY_UPLOAD_PRESET")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")

	// Create the signature
	h := hmac.New(sha1.New, []byte(apiSecret))
	h.Write([]byte("timestamp=" + timestamp + "&upload_preset=" + uploadPreset))
	signature := hex.EncodeToString(h.Sum(nil))

	// Respond with the timestamp and signature
	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
