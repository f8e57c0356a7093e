package pairing

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPNG renders a pairing URI as a PNG QR code. Used as the manual fallback
// when no wallet app can be opened by deep link: the user scans the code
// from the wallet instead.
func QRPNG(uri string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render pairing qr: %w", err)
	}
	return png, nil
}
