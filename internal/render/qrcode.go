package render

import (
	"errors"
	"image"
	"net/url"

	"github.com/skip2/go-qrcode"

	"github.com/rook-computer/shadeview/internal/viewport"
)

const defaultQRCodeSizePx = 256

// ShareURL appends the viewport to baseURL as query parameters.
func ShareURL(baseURL string, v viewport.Viewport) (string, error) {
	if baseURL == "" {
		return "", errors.New("share: base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vals := range v.Query() {
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ShareQRCode returns a QR code image pointing at the share link for v.
func ShareQRCode(baseURL string, v viewport.Viewport, sizePx int) (image.Image, error) {
	link, err := ShareURL(baseURL, v)
	if err != nil {
		return nil, err
	}
	if sizePx <= 0 {
		sizePx = defaultQRCodeSizePx
	}

	qrCode, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	return qrCode.Image(sizePx), nil
}
