package overlay

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"

	"github.com/okian/behavior/internal/domain/model"
)

func white(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "HAPPY (88%)", EmotionLabel(model.EmotionScores{model.Happy: 88.2, model.Sad: 3}))
	assert.Equal(t, "", EmotionLabel(nil))
	assert.Equal(t, "alice (91.5%)", IdentityLabel("alice", 91.46))
}

func TestDrawBoxDoesNotTouchSource(t *testing.T) {
	src := white(100, 100)
	faces := []model.DetectedFace{{Region: model.Region{X: 20, Y: 30, W: 40, H: 50}}}

	out := Draw(src, faces, 2, basicfont.Face7x13)

	assert.Equal(t, Green, out.RGBAAt(20, 30), "top-left corner")
	assert.Equal(t, Green, out.RGBAAt(21, 50), "left edge inner pixel")
	assert.Equal(t, Green, out.RGBAAt(59, 79), "bottom-right corner")
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(40, 55), "inside stays white")
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, src.RGBAAt(20, 30), "source untouched")
}

func TestDrawSkipsEmptyRegionsAndClips(t *testing.T) {
	src := white(50, 50)
	faces := []model.DetectedFace{
		{Region: model.Region{}},
		{Region: model.Region{X: 30, Y: 30, W: 100, H: 100}, Emotions: model.EmotionScores{model.Sad: 60}},
	}

	out := Draw(src, faces, 2, basicfont.Face7x13)

	assert.Equal(t, Green, out.RGBAAt(30, 30))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(0, 49))
}

func TestDrawIdentityLabel(t *testing.T) {
	src := white(200, 200)
	faces := []model.DetectedFace{{
		Region:             model.Region{X: 50, Y: 60, W: 80, H: 80},
		HasIdentity:        true,
		Identity:           "bob",
		IdentityConfidence: 90,
		Emotions:           model.EmotionScores{model.Happy: 70},
	}}

	out := Draw(src, faces, 2, basicfont.Face7x13)

	assert.True(t, hasGreen(out, image.Rect(50, 40, 130, 58)), "identity label above the box")
	assert.True(t, hasGreen(out, image.Rect(50, 141, 130, 160)), "emotion label below the box")
}

func hasGreen(img *image.RGBA, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == Green {
				return true
			}
		}
	}
	return false
}

func TestRendererJPEG(t *testing.T) {
	r := New(WithQuality(90))

	_, ok, err := r.JPEG()
	require.NoError(t, err)
	assert.False(t, ok, "nothing rendered yet")

	r.Render(context.Background(), model.Frame{Image: white(64, 48), Seq: 7}, nil)

	img, seq := r.Latest()
	require.NotNil(t, img)
	assert.Equal(t, uint64(7), seq)

	data, ok, err := r.JPEG()
	require.NoError(t, err)
	require.True(t, ok)
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())

	again, _, _ := r.JPEG()
	assert.Equal(t, &data[0], &again[0], "same frame is encoded once")
}

func TestRendererIgnoresNilImage(t *testing.T) {
	r := New()
	r.Render(context.Background(), model.Frame{Seq: 1}, nil)
	img, _ := r.Latest()
	assert.Nil(t, img)
}
