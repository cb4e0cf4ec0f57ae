// Package imaging decodes uploaded photos and renders them to fixed presets.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"net/http"
	"time"

	"pictogram/internal/models"
	"pictogram/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Fit decides how a source is mapped onto the preset box.
type Fit int

const (
	// Cover scales to fill the box and crops the overflow around the centre.
	Cover Fit = iota
	// Contain scales to fit inside the box and letterboxes the rest in black.
	Contain
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpg"
	WebP Format = "webp"
)

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case WebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Preset is a fixed output geometry and encoding.
type Preset struct {
	Name    string
	Width   int
	Height  int
	Fit     Fit
	Format  Format
	Quality int
}

var (
	ProfilePreset = Preset{Name: "profile", Width: 320, Height: 320, Fit: Cover, Format: PNG}
	PostPreset    = Preset{Name: "post", Width: 1080, Height: 1350, Fit: Contain, Format: JPEG, Quality: 70}
	StoryPreset   = Preset{Name: "story", Width: 1080, Height: 1920, Fit: Contain, Format: JPEG, Quality: 70}
)

// AsWebP returns the preset re-targeted to WebP at the same quality.
func (p Preset) AsWebP() Preset {
	p.Format = WebP
	if p.Quality == 0 {
		p.Quality = 70
	}
	return p
}

// Rendition is an encoded output image.
type Rendition struct {
	Data   []byte
	Format Format
}

// Validate checks size and sniffed type before any decoding happens.
func Validate(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return models.NewValidationError("No photo found to upload.")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return models.NewValidationError(fmt.Sprintf("Photo is too large (max %dMB).", maxBytes/(1024*1024)))
	}
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return nil
	default:
		return models.NewValidationError("Please upload a JPEG, PNG, GIF or WebP image.")
	}
}

// Render decodes data and renders it to p.
func Render(data []byte, p Preset) (*Rendition, error) {
	start := time.Now()
	defer func() {
		observability.ImageProcessingSeconds.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
	}()

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file.")
	}

	var dst image.Image
	if p.Fit == Cover {
		dst = cover(src, p.Width, p.Height)
	} else {
		dst = contain(src, p.Width, p.Height)
	}

	out, err := encode(dst, p)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Rendition{Data: out, Format: p.Format}, nil
}

func cover(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()

	// Crop the largest centred region with the target aspect ratio.
	cropW, cropH := sw, sw*h/w
	if cropH > sh {
		cropW, cropH = sh*w/h, sh
	}
	x0 := b.Min.X + (sw-cropW)/2
	y0 := b.Min.Y + (sh-cropH)/2
	crop := image.Rect(x0, y0, x0+cropW, y0+cropH)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Over, nil)
	return dst
}

func contain(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()

	scale := min(float64(w)/float64(sw), float64(h)/float64(sh))
	nw := max(int(float64(sw)*scale), 1)
	nh := max(int(float64(sh)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	x0 := (w - nw) / 2
	y0 := (h - nh) / 2
	xdraw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+nw, y0+nh), src, b, xdraw.Over, nil)
	return dst
}

func encode(img image.Image, p Preset) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	switch p.Format {
	case PNG:
		err = png.Encode(buf, img)
	case WebP:
		err = webp.Encode(buf, img, &webp.Options{Quality: float32(p.Quality)})
	default:
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: p.Quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
