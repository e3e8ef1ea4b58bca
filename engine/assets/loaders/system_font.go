package loaders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

type SystemFontFace struct {
	Name string
}

// SystemFont is a parsed TrueType/OpenType file plus the faces the .fontcfg
// asks for.
type SystemFont struct {
	File       string
	Collection *sfnt.Collection
	Faces      []*SystemFontFace
	// Families holds the family name of every font in the collection.
	Families []string
}

// Font returns the font of the collection whose family is name.
func (sf *SystemFont) Font(name string) (*sfnt.Font, bool) {
	for i, family := range sf.Families {
		if family == name {
			f, err := sf.Collection.Font(i)
			if err != nil {
				return nil, false
			}
			return f, true
		}
	}
	return nil, false
}

// SystemFontLoader reads .fontcfg files:
//
//	file=fonts/NotoSans.ttf
//	face=Noto Sans
//
// The font file is taken relative to the .fontcfg directory.
type SystemFontLoader struct{}

func (fl *SystemFontLoader) LoadAsset(path string) (*SystemFont, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rd := &SystemFont{
		Faces: []*SystemFontFace{},
	}
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "file=") {
			filename := strings.TrimPrefix(line, "file=")
			fullPath := filename
			if !filepath.IsAbs(fullPath) {
				fullPath = filepath.Join(filepath.Dir(path), filepath.FromSlash(filename))
			}
			fontBytes, err := os.ReadFile(fullPath)
			if err != nil {
				return nil, err
			}
			f, err := opentype.ParseCollection(fontBytes)
			if err != nil {
				return nil, fmt.Errorf("parse font %s: %w", fullPath, err)
			}
			rd.File = filename
			rd.Collection = f
		} else if strings.HasPrefix(line, "face=") {
			face := strings.TrimPrefix(line, "face=")
			rd.Faces = append(rd.Faces, &SystemFontFace{
				Name: face,
			})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if rd.Collection == nil {
		return nil, fmt.Errorf("%s: no font file given", path)
	}

	var buf sfnt.Buffer
	for i := 0; i < rd.Collection.NumFonts(); i++ {
		f, err := rd.Collection.Font(i)
		if err != nil {
			return nil, err
		}
		family, err := f.Name(&buf, sfnt.NameIDFamily)
		if err != nil {
			return nil, fmt.Errorf("read family name of %s: %w", rd.File, err)
		}
		rd.Families = append(rd.Families, family)
	}
	for _, face := range rd.Faces {
		if _, ok := rd.Font(face.Name); !ok {
			return nil, fmt.Errorf("%s: face '%s' not found in %s", path, face.Name, rd.File)
		}
	}

	return rd, nil
}
