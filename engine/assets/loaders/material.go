package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

/** @brief Material settings read from an .amt file. */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string
	/** @brief The shader used to render the material. */
	ShaderName string
	/** @brief Indicates if the material should be automatically released when no references to it remain. */
	AutoRelease bool
	/** @brief The diffuse colour of the material, RGBA in [0, 1]. */
	DiffuseColour [4]float32
	/** @brief The shininess of the material. */
	Shininess float32
	/** @brief The diffuse map path, relative to the asset root. */
	DiffuseMapName string
	/** @brief The specular map path, relative to the asset root. */
	SpecularMapName string
	/** @brief The normal map path, relative to the asset root. */
	NormalMapName string

	// Texture handles, set when the loader has a registry.
	DiffuseMap  assets.Handle
	SpecularMap assets.Handle
	NormalMap   assets.Handle
}

// MaterialLoader parses .amt files. When Registry is set every texture map
// is registered with it, which loads the texture from inside this loader.
type MaterialLoader struct {
	Registry *assets.Registry
}

func (ml *MaterialLoader) LoadAsset(path string) (*MaterialConfig, error) {
	mCfg, err := parseAMTFile(path)
	if err != nil {
		return nil, err
	}
	if ml.Registry != nil {
		mCfg.DiffuseMap = ml.textureHandle(mCfg.DiffuseMapName)
		mCfg.SpecularMap = ml.textureHandle(mCfg.SpecularMapName)
		mCfg.NormalMap = ml.textureHandle(mCfg.NormalMapName)
	}
	return mCfg, nil
}

func (ml *MaterialLoader) textureHandle(name string) assets.Handle {
	if name == "" {
		return assets.InvalidHandle
	}
	return assets.Load[*Texture](ml.Registry, name)
}

func parseAMTFile(filename string) (*MaterialConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	materialConfig := &MaterialConfig{}

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			core.LogWarn("%s:%d: skipping invalid line '%s'", filename, lineNumber, line)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "version":
			// only one version exists so far
		case "name":
			materialConfig.Name = value
		case "shader":
			materialConfig.ShaderName = value
		case "diffuse_colour":
			colourValues := strings.Fields(value)
			if len(colourValues) != 4 {
				return nil, fmt.Errorf("%s:%d: invalid diffuse_colour, expected 4 values", filename, lineNumber)
			}
			for i, v := range colourValues {
				f, err := strconv.ParseFloat(v, 32)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: invalid diffuse_colour value: %s", filename, lineNumber, v)
				}
				materialConfig.DiffuseColour[i] = float32(f)
			}
		case "shininess":
			shininess, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid shininess value: %s", filename, lineNumber, value)
			}
			materialConfig.Shininess = float32(shininess)
		case "diffuse_map_name":
			materialConfig.DiffuseMapName = value
		case "specular_map_name":
			materialConfig.SpecularMapName = value
		case "normal_map_name":
			materialConfig.NormalMapName = value
		case "autorelease":
			autoRelease, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid autorelease value: %s", filename, lineNumber, value)
			}
			materialConfig.AutoRelease = autoRelease
		default:
			core.LogWarn("%s:%d: unknown key '%s', skipping", filename, lineNumber, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := validateMaterial(materialConfig); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return materialConfig, nil
}

func validateMaterial(material *MaterialConfig) error {
	if material.Name == "" {
		return fmt.Errorf("material name is required")
	}
	if material.ShaderName == "" {
		return fmt.Errorf("shader name is required")
	}
	for _, c := range material.DiffuseColour {
		if c < 0.0 || c > 1.0 {
			return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
		}
	}
	if material.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value")
	}
	return nil
}
