package blogwidgets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessImageResizesWideImages(t *testing.T) {
	m, data, err := processImage(bytes.NewReader(testPNG(t, 2400, 600)), "Wide Shot.png", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1200, m.Width)
	assert.Equal(t, 300, m.Height)
	assert.Equal(t, len(data), m.Size)
	assert.Equal(t, "Wide Shot.png", m.OriginalName)
	assert.Regexp(t, `^wide-shot-[0-9a-f]{8}\.jpg$`, m.Filename)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1200, cfg.Width)
}

func TestProcessImageKeepsSmallImages(t *testing.T) {
	m, _, err := processImage(bytes.NewReader(testPNG(t, 40, 30)), "!!!.png", testNow)
	require.NoError(t, err)
	assert.Equal(t, 40, m.Width)
	assert.Equal(t, 30, m.Height)
	assert.Regexp(t, `^image-`, m.Filename)
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	_, _, err := processImage(bytes.NewReader([]byte("not an image")), "x.png", testNow)
	assert.Error(t, err)
}

func TestValidMediaName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo-1a2b3c4d.jpg", true},
		{"", false},
		{"../secret", false},
		{"dir/photo.jpg", false},
		{".hidden", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validMediaName(tt.name), tt.name)
	}
}

func TestMediaUploadAndDelete(t *testing.T) {
	a := newTestApp(t)
	c := login(t, a)
	c.do(http.MethodGet, "/admin/media/", nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("_csrf", c.token))
	fw, err := mw.CreateFormFile("image", "cover.png")
	require.NoError(t, err)
	_, err = fw.Write(testPNG(t, 64, 32))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/media/upload/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	media, err := a.Store.ListMedia(context.Background())
	require.NoError(t, err)
	require.Len(t, media, 1)
	name := media[0].Filename
	assert.Regexp(t, regexp.MustCompile(`^cover-`), name)
	_, err = os.Stat(filepath.Join(a.staticDir, uploadsSubdir, name))
	require.NoError(t, err)

	rec = c.do(http.MethodGet, "/admin/media/", nil)
	assert.Contains(t, rec.Body.String(), name)

	rec = c.do(http.MethodPost, "/admin/media/"+name+"/delete/", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = os.Stat(filepath.Join(a.staticDir, uploadsSubdir, name))
	assert.True(t, os.IsNotExist(err))
	media, err = a.Store.ListMedia(context.Background())
	require.NoError(t, err)
	assert.Empty(t, media)
}
