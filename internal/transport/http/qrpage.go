package httptransport

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 300

type qrPageData struct {
	UserName      string
	CourseName    string
	University    string
	InvitationURL string
	QRDataURL     template.URL
}

var qrPageTemplate = template.Must(template.New("qrpage").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Receive your credential - {{.University}}</title>
  <style>
    body {
      font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
      display: flex; justify-content: center; align-items: center;
      min-height: 100vh; margin: 0;
      background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
      color: #333;
    }
    .container {
      background: white; padding: 2rem; border-radius: 15px;
      box-shadow: 0 10px 30px rgba(0,0,0,0.2); text-align: center;
      max-width: 400px;
    }
    h1 { color: #2c3e50; margin-bottom: 0.5rem; }
    .course-name { color: #3498db; font-weight: bold; font-size: 1.2em; margin: 1rem 0; }
    .instructions { color: #666; margin: 1rem 0; line-height: 1.6; }
    .qr-container { margin: 1.5rem 0; padding: 1rem; background: #f8f9fa; border-radius: 10px; }
    .qr-code { border: 3px solid #fff; border-radius: 10px; box-shadow: 0 4px 15px rgba(0,0,0,0.1); }
    .footer { margin-top: 2rem; font-size: 0.8em; color: #999; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Congratulations, {{.UserName}}!</h1>
    <div class="course-name">&quot;{{.CourseName}}&quot;</div>
    <div class="instructions">
      You have completed your course. Scan the QR code with your identity
      wallet to receive your verifiable credential.
    </div>
    <div class="qr-container">
      <img src="{{.QRDataURL}}" alt="Credential QR code" class="qr-code" />
    </div>
    <div class="footer">{{.University}} - Verifiable Credential Service</div>
  </div>
</body>
</html>
`))

var notFoundPage = []byte(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial; text-align: center; padding: 2rem;">
  <h1>Invitation not found</h1>
  <p>This invitation may have expired or was already used.</p>
</body>
</html>
`)

// renderQRPage encodes the invitation URL as a QR PNG and embeds it as a data
// URL so the page is entirely self-contained.
func renderQRPage(data qrPageData) ([]byte, error) {
	png, err := qrcode.Encode(data.InvitationURL, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode QR code: %w", err)
	}
	data.QRDataURL = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))

	var buf bytes.Buffer
	if err := qrPageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render QR page: %w", err)
	}
	return buf.Bytes(), nil
}

func writeNotFoundPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(notFoundPage)
}
