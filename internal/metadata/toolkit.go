package metadata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/satindergrewal/promoreel/internal/apperr"
	"github.com/satindergrewal/promoreel/internal/theme"
)

// maxPortraits is how many speaker images accompany the thumbnail prompt.
const maxPortraits = 2

type Image struct {
	Data     []byte
	MIMEType string
}

// Request describes the promo the metadata is for.
type Request struct {
	Title1    string
	Title2    string
	Theme     theme.ID
	Portraits []Image
}

func (r Request) headline() string {
	return strings.TrimSpace(r.Title1 + " " + r.Title2)
}

// Assets is the publishing text for one video.
type Assets struct {
	Titles      []string `json:"titles"`
	Description string   `json:"description"`
	Hashtags    string   `json:"hashtags"`
	Keywords    string   `json:"keywords"`
}

type Thumbnail struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// DataURL encodes the thumbnail for direct use in an <img> tag.
func (t Thumbnail) DataURL() string {
	return "data:" + t.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(t.Data)
}

// Result holds both halves of a toolkit run. It is only ever returned whole.
type Result struct {
	Assets    Assets    `json:"assets"`
	Thumbnail Thumbnail `json:"thumbnail"`
}

const assetsPrompt = `Based on the video title "%s", generate the following for a viral YouTube video:
1. 5 attractive trending titles in a mix of Bangla and English.
2. A long professional SEO-friendly description (approx 200 words) written ENTIRELY in Bangla language (Bengali script).
3. 15 relevant hashtags starting with #.
4. The same hashtags/keywords but separated only by commas, WITHOUT any # sign.

Return the response in JSON format with keys: "titles" (array), "description" (string), "hashtags" (string), "keywords" (string).`

const thumbnailPrompt = `Create an ultra-high-quality, professional, viral 16:9 YouTube thumbnail background based on: "%s".
CRITICAL INSTRUCTION: DO NOT INCLUDE ANY TEXT, LETTERS, WORDS, OR GIBBERISH CHARACTERS IN THE IMAGE.
STYLE: Cinematic, high-contrast, dramatic lighting (rim light), vibrant saturated colors.
COMPOSITION: Focus on the subjects provided in the images. The background should be a blurred high-stakes environment (like a dark studio, a political rally, or an abstract digital grid).
The mood should be intense, mysterious, and click-worthy. Look like a top-tier documentary or news analysis channel.
Theme: %s.`

// GenerateAssets asks the text model for titles, a description, hashtags
// and keywords. All four fields must be present.
func (c *Client) GenerateAssets(ctx context.Context, req Request) (Assets, error) {
	parts, err := c.generate(ctx, c.textModel,
		[]part{{Text: fmt.Sprintf(assetsPrompt, req.headline())}},
		&generationConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return Assets{}, fmt.Errorf("%w: assets: %v", apperr.ErrExternalService, err)
	}

	var text strings.Builder
	for _, p := range parts {
		text.WriteString(p.Text)
	}
	assets, err := parseAssets(text.String())
	if err != nil {
		return Assets{}, fmt.Errorf("%w: assets: %v", apperr.ErrExternalService, err)
	}
	return assets, nil
}

// parseAssets decodes the model's JSON answer, tolerating a markdown fence.
func parseAssets(raw string) (Assets, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var fields struct {
		Titles      *[]string `json:"titles"`
		Description *string   `json:"description"`
		Hashtags    *string   `json:"hashtags"`
		Keywords    *string   `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Assets{}, fmt.Errorf("malformed JSON: %w", err)
	}

	var missing []string
	if fields.Titles == nil || len(*fields.Titles) == 0 {
		missing = append(missing, "titles")
	}
	if fields.Description == nil {
		missing = append(missing, "description")
	}
	if fields.Hashtags == nil {
		missing = append(missing, "hashtags")
	}
	if fields.Keywords == nil {
		missing = append(missing, "keywords")
	}
	if len(missing) > 0 {
		return Assets{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return Assets{
		Titles:      *fields.Titles,
		Description: *fields.Description,
		Hashtags:    *fields.Hashtags,
		Keywords:    *fields.Keywords,
	}, nil
}

// GenerateThumbnail asks the image model for a textless 16:9 background,
// passing up to two speaker portraits as reference.
func (c *Client) GenerateThumbnail(ctx context.Context, req Request) (Thumbnail, error) {
	parts := []part{{Text: fmt.Sprintf(thumbnailPrompt, req.headline(), req.Theme)}}
	for i, img := range req.Portraits {
		if i == maxPortraits {
			break
		}
		if len(img.Data) == 0 {
			continue
		}
		mime := img.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: mime,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}

	out, err := c.generate(ctx, c.imageModel, parts, &generationConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig:        &imageConfig{AspectRatio: "16:9"},
	})
	if err != nil {
		return Thumbnail{}, fmt.Errorf("%w: thumbnail: %v", apperr.ErrExternalService, err)
	}

	for _, p := range out {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return Thumbnail{}, fmt.Errorf("%w: thumbnail: bad image payload: %v", apperr.ErrExternalService, err)
		}
		mime := p.InlineData.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return Thumbnail{Data: data, MIMEType: mime}, nil
	}
	return Thumbnail{}, fmt.Errorf("%w: thumbnail: %v", apperr.ErrExternalService, errors.New("no image in response"))
}

// Toolkit runs text then image generation. Any failure yields a single
// error and no partial result.
func (c *Client) Toolkit(ctx context.Context, req Request) (*Result, error) {
	assets, err := c.GenerateAssets(ctx, req)
	if err != nil {
		log.Printf("Toolkit: %v", err)
		return nil, err
	}
	thumb, err := c.GenerateThumbnail(ctx, req)
	if err != nil {
		log.Printf("Toolkit: %v", err)
		return nil, err
	}
	log.Printf("Toolkit: %d titles, %d-byte %s thumbnail for %q", len(assets.Titles), len(thumb.Data), thumb.MIMEType, req.headline())
	return &Result{Assets: assets, Thumbnail: thumb}, nil
}
