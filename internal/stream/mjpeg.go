package stream

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
)

// FrameSource hands out copies of the latest rendered frame.
type FrameSource interface {
	Snapshot() *image.RGBA
}

// MJPEGHandler serves rendered frames as multipart/x-mixed-replace JPEGs,
// which browsers display natively in an <img> tag.
type MJPEGHandler struct {
	source   FrameSource
	interval time.Duration
	quality  int
	width    int // 0 keeps the source width
}

// NewMJPEGHandler streams frames at fps. width > 0 downscales each frame
// (keeping aspect) before encoding.
func NewMJPEGHandler(src FrameSource, fps, quality, width int) *MJPEGHandler {
	if fps <= 0 {
		fps = 15
	}
	if quality <= 0 || quality > 100 {
		quality = 75
	}
	return &MJPEGHandler{
		source:   src,
		interval: time.Second / time.Duration(fps),
		quality:  quality,
		width:    width,
	}
}

func (h *MJPEGHandler) encode(buf *bytes.Buffer) error {
	var img image.Image = h.source.Snapshot()
	if h.width > 0 && img.Bounds().Dx() > h.width {
		img = imaging.Resize(img, h.width, 0, imaging.Linear)
	}
	buf.Reset()
	return imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(h.quality))
}

func (h *MJPEGHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")

	log.Printf("MJPEG viewer connected (%s)", r.RemoteAddr)
	defer log.Printf("MJPEG viewer disconnected (%s)", r.RemoteAddr)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var buf bytes.Buffer
	for {
		if err := h.encode(&buf); err != nil {
			log.Printf("MJPEG: encode error: %v", err)
			return
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(buf.Len())},
		})
		if err != nil {
			return
		}
		if _, err := part.Write(buf.Bytes()); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// ServeSnapshot writes the latest frame as a single JPEG.
func (h *MJPEGHandler) ServeSnapshot(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.encode(&buf); err != nil {
		http.Error(w, fmt.Sprintf("encode frame: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Write(buf.Bytes())
}
