// Package qr renders serialized cards as QR codes and reads them back.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	qrgen "github.com/skip2/go-qrcode"

	"github.com/tartampluch/go-vcf/internal/card"
	"github.com/tartampluch/go-vcf/internal/config"
)

// Encode renders text as a PNG QR code of size pixels (0 = config.DefaultQRSize).
func Encode(text string, size int) ([]byte, error) {
	if text == "" {
		return nil, errors.New(config.ErrQREmpty)
	}
	if size <= 0 {
		size = config.DefaultQRSize
	}
	if size > config.MaxQRSize {
		return nil, fmt.Errorf("%s: %d", config.ErrQRSize, size)
	}

	code, err := qrgen.New(text, qrgen.Medium)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrQREncode, err)
	}

	data, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrQREncode, err)
	}
	return data, nil
}

// Decode scans a PNG image and returns the text of the QR code it holds.
func Decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New(config.ErrQRDecode)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrQRDecode, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrQRDecode, err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrQRDecode, err)
	}
	return result.GetText(), nil
}

// EncodeRecord serializes rec and renders it as a QR code.
func EncodeRecord(rec *card.Record, size int) ([]byte, error) {
	if rec == nil {
		return nil, &card.Error{Kind: card.InvalidRecord, Message: config.ErrNilRecord}
	}
	return Encode(card.Format(rec), size)
}

// DecodeRecord scans a QR code and parses the card it carries.
func DecodeRecord(data []byte, p *card.Parser) (*card.Record, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &card.Parser{}
	}
	return p.Parse(card.NewLineReader(strings.NewReader(text)))
}
