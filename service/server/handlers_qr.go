package server

import (
	"bytes"
	"fmt"
	"net/http"

	"flame/service/util"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

type bufferCloser struct {
	*bytes.Buffer
}

func (bufferCloser) Close() error { return nil }

// handleAppQRCode serves a PNG QR code of the app URL for opening it on a phone.
func (s *Server) handleAppQRCode(w http.ResponseWriter, r *http.Request) {
	a, ok := s.visibleApp(w, r)
	if !ok {
		return
	}

	png, err := renderQRCode(util.NormalizeURL(a.URL))
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to render QR code", http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(png); err != nil {
		s.logger.Debug("Failed to write QR code", "error", err)
	}
}

func renderQRCode(content string) ([]byte, error) {
	qrc, err := qrcode.New(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	buf := bufferCloser{Buffer: &bytes.Buffer{}}
	writer := standard.NewWithWriter(buf,
		standard.WithQRWidth(8),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err := qrc.Save(writer); err != nil {
		return nil, fmt.Errorf("failed to write QR code: %w", err)
	}

	return buf.Bytes(), nil
}
