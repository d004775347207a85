package registrations

import (
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize is the rendered check-in QR edge in pixels.
const QRSize = 256

// CheckInURL is the link a check-in QR encodes.
func CheckInURL(siteURL, code string) string {
	return siteURL + "/checkin?code=" + url.QueryEscape(code)
}

// CheckInQR renders the check-in link for code as a PNG.
func CheckInQR(siteURL, code string) ([]byte, error) {
	return qrcode.Encode(CheckInURL(siteURL, code), qrcode.Medium, QRSize)
}
