package utils

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	// Base directory for storing uploaded files
	uploadBaseDir = "uploads"
	// Base URL for serving files
	baseURL = "/uploads"
	// Maximum file size (10MB)
	maxFileSize = 10 * 1024 * 1024
)

// Allowed payment proof extensions (bank transfer screenshots / receipts)
var allowedProofExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// cleanFilename removes any potentially dangerous characters from the filename
func cleanFilename(filename string) string {
	// Remove any path components
	filename = filepath.Base(filename)
	// Remove any non-alphanumeric characters except for dots and hyphens
	reg := regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	return reg.ReplaceAllString(filename, "")
}

// InitializeStorage creates necessary directories for file storage
func InitializeStorage() error {
	dirs := []string{
		uploadBaseDir,
		filepath.Join(uploadBaseDir, "payments"),
		filepath.Join(uploadBaseDir, "thumbnails"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}

	return nil
}

// SavePaymentProof stores a payment proof file under uploads/payments and,
// for images, writes a 320px-wide thumbnail next to it. Returns the public
// URLs of the file and the thumbnail (empty for PDFs).
func SavePaymentProof(fileData []byte, filename string) (string, string, error) {
	if len(fileData) > maxFileSize {
		return "", "", fmt.Errorf("file too large. Maximum size is %d bytes", maxFileSize)
	}

	cleanName := cleanFilename(filename)
	ext := strings.ToLower(filepath.Ext(cleanName))
	if !allowedProofExts[ext] {
		return "", "", fmt.Errorf("unsupported payment proof format. Allowed formats: jpg, jpeg, png, pdf")
	}

	if err := InitializeStorage(); err != nil {
		return "", "", err
	}

	storedName := fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.NewString()[:8], ext)
	fullPath := filepath.Join(uploadBaseDir, "payments", storedName)

	if err := os.WriteFile(fullPath, fileData, 0644); err != nil {
		return "", "", fmt.Errorf("failed to save payment proof: %v", err)
	}

	fileURL := baseURL + "/payments/" + storedName

	if ext == ".pdf" {
		return fileURL, "", nil
	}

	thumbURL, err := generateProofThumbnail(fileData, storedName)
	if err != nil {
		// The proof itself is saved; a missing thumbnail is not fatal
		return fileURL, "", nil
	}

	return fileURL, thumbURL, nil
}

// generateProofThumbnail resizes the proof image to a 320px-wide JPEG.
func generateProofThumbnail(fileData []byte, storedName string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(fileData))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %v", err)
	}

	resized := imaging.Resize(img, 320, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %v", err)
	}

	thumbName := strings.TrimSuffix(storedName, filepath.Ext(storedName)) + "_thumb.jpg"
	thumbPath := filepath.Join(uploadBaseDir, "thumbnails", thumbName)

	if err := os.WriteFile(thumbPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %v", err)
	}

	return baseURL + "/thumbnails/" + thumbName, nil
}
