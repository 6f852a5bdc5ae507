// Package qrcode renders ticket payloads as PNG data URIs.
package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

const dataURIPrefix = "data:image/png;base64,"

// Encoder renders QR images for ticket hashes.
type Encoder struct {
	size  int
	level goqrcode.RecoveryLevel
}

// NewEncoder returns an encoder producing size x size PNGs.
func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = 256
	}
	return &Encoder{size: size, level: goqrcode.Medium}
}

// ToDataURL encodes payload as a QR code and returns it as a data URI.
func (e *Encoder) ToDataURL(payload string) (string, error) {
	if payload == "" {
		return "", errors.New("empty qr payload")
	}
	png, err := goqrcode.Encode(payload, e.level, e.size)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}
