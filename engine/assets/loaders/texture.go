package loaders

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type TextureFormat int

const (
	TEXTURE_FORMAT_UNKNOWN TextureFormat = iota
	TEXTURE_FORMAT_RGBA8
)

/** @brief Decoded image data, tightly packed rows of RGBA8 pixels. */
type Texture struct {
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The number of channels, always 4. */
	ChannelCount uint8
	/** @brief The pixel data of the image. */
	Pixels []uint8
	Format TextureFormat
	/** @brief The codec the file was decoded with (png, jpeg, webp...). */
	Codec string
}

// TextureLoader decodes PNG, JPEG, GIF, BMP, TIFF and WebP images.
type TextureLoader struct {
	// FlipY stores the rows bottom-up, as most GPU APIs expect.
	FlipY bool
}

func (tl *TextureLoader) LoadAsset(path string) (*Texture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, codec, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}

	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	pixels := rgba.Pix
	if tl.FlipY {
		pixels = flipRows(rgba.Pix, rgba.Stride, b.Dy())
	}

	return &Texture{
		Width:        uint32(b.Dx()),
		Height:       uint32(b.Dy()),
		ChannelCount: 4,
		Pixels:       pixels,
		Format:       TEXTURE_FORMAT_RGBA8,
		Codec:        codec,
	}, nil
}

func flipRows(pix []uint8, stride, rows int) []uint8 {
	out := make([]uint8, len(pix))
	for y := 0; y < rows; y++ {
		copy(out[(rows-1-y)*stride:(rows-y)*stride], pix[y*stride:(y+1)*stride])
	}
	return out
}
