package stream

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type solidSource struct {
	w, h int
	c    color.RGBA
}

func (s solidSource) Snapshot() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = s.c.R, s.c.G, s.c.B, s.c.A
	}
	return img
}

func TestMJPEGStream(t *testing.T) {
	h := NewMJPEGHandler(solidSource{320, 180, color.RGBA{R: 255, A: 255}}, 50, 90, 160)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" {
		t.Fatalf("Content-Type = %q (%v)", resp.Header.Get("Content-Type"), err)
	}
	mr := multipart.NewReader(resp.Body, params["boundary"])
	for i := 0; i < 2; i++ {
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("part %d Content-Type = %q", i, ct)
		}
		img, err := jpeg.Decode(part)
		if err != nil {
			t.Fatalf("part %d: decode: %v", i, err)
		}
		if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 90 {
			t.Errorf("part %d size = %v, want 160x90", i, b)
		}
		r, g, _, _ := img.At(80, 45).RGBA()
		if r>>8 < 230 || g>>8 > 30 {
			t.Errorf("part %d center not red", i)
		}
	}
}

func TestMJPEGSnapshot(t *testing.T) {
	h := NewMJPEGHandler(solidSource{64, 36, color.RGBA{B: 255, A: 255}}, 0, 0, 0)
	rec := httptest.NewRecorder()
	h.ServeSnapshot(rec, httptest.NewRequest(http.MethodGet, "/preview.jpg", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	img, err := jpeg.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
		t.Errorf("snapshot size = %v, want source size", b)
	}
}
