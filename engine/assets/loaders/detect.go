package loaders

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/spaghettifunk/anima-assets/engine/assets"
)

type AssetKind int

const (
	KIND_UNKNOWN AssetKind = iota
	KIND_TEXTURE
	KIND_SHADER
	KIND_MATERIAL
	KIND_BITMAP_FONT
	KIND_SYSTEM_FONT
	KIND_BINARY
)

func (k AssetKind) String() string {
	switch k {
	case KIND_TEXTURE:
		return "texture"
	case KIND_SHADER:
		return "shader"
	case KIND_MATERIAL:
		return "material"
	case KIND_BITMAP_FONT:
		return "bitmap-font"
	case KIND_SYSTEM_FONT:
		return "system-font"
	case KIND_BINARY:
		return "binary"
	}
	return "unknown"
}

// textKinds maps extensions of formats that cannot be sniffed.
var textKinds = map[string]AssetKind{
	".amt":     KIND_MATERIAL,
	".fnt":     KIND_BITMAP_FONT,
	".fontcfg": KIND_SYSTEM_FONT,
	".spv":     KIND_SHADER,
}

// sniffLen is how much of a file filetype needs to recognise it.
const sniffLen = 262

// DetectKind guesses the kind of an asset from its content, falling back to
// the extension. Files that exist but match nothing are KIND_BINARY.
func DetectKind(path string) (AssetKind, error) {
	if kind, ok := textKinds[strings.ToLower(filepath.Ext(path))]; ok {
		return kind, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return KIND_UNKNOWN, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return KIND_UNKNOWN, err
	}
	head = head[:n]

	switch {
	case filetype.IsImage(head):
		return KIND_TEXTURE, nil
	case filetype.IsFont(head):
		return KIND_SYSTEM_FONT, nil
	}
	return KIND_BINARY, nil
}

// RegisterAll installs every loader of this package on r.
func RegisterAll(r *assets.Registry) {
	assets.RegisterLoader[*Texture](r, &TextureLoader{})
	assets.RegisterLoader[*Shader](r, &ShaderLoader{})
	assets.RegisterLoader[*Blob](r, &BinaryLoader{})
	assets.RegisterLoader[*MaterialConfig](r, &MaterialLoader{Registry: r})
	assets.RegisterLoader[*FontData](r, &BitmapFontLoader{})
	assets.RegisterLoader[*SystemFont](r, &SystemFontLoader{})
}

// LoadKind registers path with the loader matching kind. Raw font files
// have no .fontcfg around them and are kept as blobs.
func LoadKind(r *assets.Registry, kind AssetKind, path string) assets.Handle {
	switch kind {
	case KIND_TEXTURE:
		return assets.Load[*Texture](r, path)
	case KIND_SHADER:
		return assets.Load[*Shader](r, path)
	case KIND_MATERIAL:
		return assets.Load[*MaterialConfig](r, path)
	case KIND_BITMAP_FONT:
		return assets.Load[*FontData](r, path)
	case KIND_SYSTEM_FONT:
		if strings.EqualFold(filepath.Ext(path), ".fontcfg") {
			return assets.Load[*SystemFont](r, path)
		}
	}
	return assets.Load[*Blob](r, path)
}
