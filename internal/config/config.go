package config

import (
	"os"
	"strconv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Rendering and export
	FPS          int
	FFmpegPath   string
	OutputDir    string
	VideoBitrate int
	FontPath     string // empty uses the embedded Go Bold face
	StyleFile    string // optional YAML preset

	// Live preview
	PreviewFPS   int
	PreviewScale float64 // MJPEG width as a fraction of the render width
	JPEGQuality  int
	OpusBitrate  int

	// Gemini metadata service
	GeminiAPIKey     string
	GeminiAPIURL     string
	GeminiTextModel  string
	GeminiImageModel string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("PROMO_PORT", 8080),

		FPS:          envInt("PROMO_FPS", 30),
		FFmpegPath:   envStr("PROMO_FFMPEG", "ffmpeg"),
		OutputDir:    envStr("PROMO_OUTPUT_DIR", "output"),
		VideoBitrate: envInt("PROMO_VIDEO_BITRATE", 8000000),
		FontPath:     envStr("PROMO_FONT_PATH", ""),
		StyleFile:    envStr("PROMO_STYLE_FILE", ""),

		PreviewFPS:   envInt("PROMO_PREVIEW_FPS", 15),
		PreviewScale: envFloat("PROMO_PREVIEW_SCALE", 0.5),
		JPEGQuality:  envInt("PROMO_JPEG_QUALITY", 75),
		OpusBitrate:  envInt("PROMO_OPUS_BITRATE", 128000),

		GeminiAPIKey:     envStr("GEMINI_API_KEY", ""),
		GeminiAPIURL:     envStr("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTextModel:  envStr("GEMINI_TEXT_MODEL", "gemini-3-flash-preview"),
		GeminiImageModel: envStr("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
	}
}

// PreviewWidth is the MJPEG frame width for a render of the given width.
// Scales outside (0, 1] keep the full width.
func (c Config) PreviewWidth(renderWidth int) int {
	if c.PreviewScale <= 0 || c.PreviewScale >= 1 {
		return 0
	}
	return int(float64(renderWidth) * c.PreviewScale)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
