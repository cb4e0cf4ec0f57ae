package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"pictogram/internal/models"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	buf := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	t.Parallel()
	img := solidPNG(t, 4, 4, color.White)

	assert.NoError(t, Validate(img, 1024*1024))
	assert.True(t, models.IsCode(Validate(nil, 1024), models.CodeValidation))
	assert.True(t, models.IsCode(Validate(img, 10), models.CodeValidation))
	assert.True(t, models.IsCode(Validate([]byte("plain text, not an image"), 1024), models.CodeValidation))
}

func TestRender_Presets(t *testing.T) {
	t.Parallel()
	src := solidPNG(t, 200, 100, color.White)

	t.Run("profile is a cover png", func(t *testing.T) {
		out, err := Render(src, ProfilePreset)
		require.NoError(t, err)
		assert.Equal(t, PNG, out.Format)
		img, err := png.Decode(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 320, 320), img.Bounds())
		r, _, _, _ := img.At(0, 0).RGBA()
		assert.Greater(t, r, uint32(0xf000), "cover must not letterbox")
	})

	t.Run("post is a letterboxed jpeg", func(t *testing.T) {
		out, err := Render(src, PostPreset)
		require.NoError(t, err)
		img, err := jpeg.Decode(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 1080, 1350), img.Bounds())
		r, _, _, _ := img.At(540, 5).RGBA()
		assert.Less(t, r, uint32(0x1000), "top band should be black")
		r, _, _, _ = img.At(540, 675).RGBA()
		assert.Greater(t, r, uint32(0xe000), "centre should be the source")
	})

	t.Run("story webp", func(t *testing.T) {
		out, err := Render(src, StoryPreset.AsWebP())
		require.NoError(t, err)
		assert.Equal(t, WebP, out.Format)
		assert.Equal(t, "image/webp", out.Format.ContentType())
		img, err := webp.Decode(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 1080, 1920), img.Bounds())
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := Render([]byte("\x89PNG\r\n\x1a\nbroken"), PostPreset)
		assert.True(t, models.IsCode(err, models.CodeValidation))
	})
}

func TestPool_HonoursContext(t *testing.T) {
	t.Parallel()
	pool := NewPool(1)
	require.NoError(t, pool.sem.Acquire(context.Background(), 1))
	defer pool.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := pool.Render(ctx, solidPNG(t, 2, 2, color.White), ProfilePreset)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_Render(t *testing.T) {
	t.Parallel()
	out, err := NewPool(0).Render(context.Background(), solidPNG(t, 10, 10, color.White), ProfilePreset)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Data)
}
