package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/blezek/tga"
	ftga "github.com/ftrvxmtrx/tga"
	"github.com/h2non/filetype"
	"github.com/oov/psd"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const webpExtension = "EXT_texture_webp"

type textureCache struct {
	srcDir   string
	textures map[string]*textureInfo
}

type textureInfo struct {
	name string
	id   *uint32
	data []byte
	mime string
	img  image.Image
	err  error
}

func newTextureCache(srcDir string) *textureCache {
	return &textureCache{srcDir: srcDir, textures: map[string]*textureInfo{}}
}

func (c *textureCache) get(name string) *textureInfo {
	if t, ok := c.textures[name]; ok {
		return t
	}
	t := &textureInfo{name: name}
	c.textures[name] = t
	return t
}

// getData reads the file and sniffs its type from the content.
func (c *textureCache) getData(name string) (*textureInfo, error) {
	t := c.get(name)
	if t.data != nil || t.err != nil {
		return t, t.err
	}
	t.data, t.err = os.ReadFile(filepath.Join(c.srcDir, filepath.FromSlash(t.name)))
	if t.err != nil {
		return t, t.err
	}
	if kind, err := filetype.Match(t.data); err == nil && kind != filetype.Unknown {
		t.mime = kind.MIME.Value
	}
	return t, nil
}

func (c *textureCache) getImage(name string) (image.Image, error) {
	t, err := c.getData(name)
	if err != nil {
		return nil, err
	}
	if t.img != nil {
		return t.img, nil
	}

	t.img, err = decodeImage(t.data, t.name, t.mime)
	if err != nil {
		t.err = fmt.Errorf("%s: %w", name, err)
		return nil, t.err
	}
	return t.img, nil
}

// decodeImage picks the decoder from the sniffed type. ftrvxmtrx/tga registers
// itself with an empty magic string, so image.Decode would hand it every file.
func decodeImage(data []byte, name, mime string) (image.Image, error) {
	r := bytes.NewReader(data)
	if strings.ToLower(filepath.Ext(name)) == ".tga" {
		img, err := ftga.Decode(r)
		if err != nil {
			// retry
			img, err = tga.Decode(bytes.NewReader(data))
		}
		return img, err
	}
	switch mime {
	case "image/png":
		return png.Decode(r)
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/gif":
		return gif.Decode(r)
	case "image/bmp":
		return bmp.Decode(r)
	case "image/vnd.adobe.photoshop":
		doc, _, err := psd.Decode(r, &psd.DecodeOptions{SkipLayerImage: true})
		if err != nil {
			return nil, err
		}
		return doc.Picker, nil
	}
	return nil, fmt.Errorf("unsupported image type %q", mime)
}

func hasAlpha(texture string, textures *textureCache) bool {
	ext := strings.ToLower(filepath.Ext(texture))
	if texture == "" || ext == ".jpg" || ext == ".jpeg" || ext == ".bmp" {
		return false
	}
	img, err := textures.getImage(texture)
	if err != nil {
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

func scaleImage(img image.Image, scale float32, limit int) image.Image {
	rect := img.Bounds()
	if limit > 0 {
		sz := int(float32(rect.Dx()) * scale)
		if sz > limit {
			scale *= float32(limit) / float32(sz)
		}
	}
	if scale == 1.0 {
		return img
	}
	w, h := int(float32(rect.Dx())*scale), int(float32(rect.Dy())*scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Over, nil)
	return dst
}

func encodeImage(w io.Writer, img image.Image, mime string) error {
	switch mime {
	case "image/webp":
		return nativewebp.Encode(w, img, nil)
	case "image/jpeg":
		return jpeg.Encode(w, img, nil)
	default:
		return png.Encode(w, img)
	}
}

func scaleTexture(texture string, mime string, textures *textureCache, scale float32, limit int) (io.Reader, error) {
	img, err := textures.getImage(texture)
	if err != nil {
		return nil, err
	}
	w := new(bytes.Buffer)
	if err := encodeImage(w, scaleImage(img, scale, limit), mime); err != nil {
		return nil, err
	}
	return w, nil
}
