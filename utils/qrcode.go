package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// GeneratePaymentQR encodes the given bank transfer content into a QR code
// and returns it as a base64 data URL suitable for embedding in a response.
func GeneratePaymentQR(content string) (string, error) {
	qrCode, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %v", err)
	}

	qrCode, err = barcode.Scale(qrCode, 300, 300)
	if err != nil {
		return "", fmt.Errorf("failed to scale QR code: %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qrCode); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %v", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// BuildTransferContent formats the memo customers must include with a
// bank transfer so payments can be matched to the right proposal phase.
func BuildTransferContent(reference string, amount int64) string {
	return fmt.Sprintf("AGILETECH %s %d", reference, amount)
}
