package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

type ShaderStage int

const (
	SHADER_STAGE_UNKNOWN ShaderStage = iota
	SHADER_STAGE_VERTEX
	SHADER_STAGE_GEOMETRY
	SHADER_STAGE_FRAGMENT
	SHADER_STAGE_COMPUTE
)

func (s ShaderStage) String() string {
	switch s {
	case SHADER_STAGE_VERTEX:
		return "vertex"
	case SHADER_STAGE_GEOMETRY:
		return "geometry"
	case SHADER_STAGE_FRAGMENT:
		return "fragment"
	case SHADER_STAGE_COMPUTE:
		return "compute"
	}
	return "unknown"
}

// Shader is a compiled SPIR-V module.
type Shader struct {
	Stage ShaderStage
	Code  []uint32
}

type ShaderLoader struct{}

func (sl *ShaderLoader) LoadAsset(path string) (*Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("shader %s: size %d is not a multiple of 4", path, len(data))
	}
	code := bytesToBytecode(data)
	if code[0] != SpirvMagic {
		return nil, fmt.Errorf("shader %s: bad SPIR-V magic 0x%08x", path, code[0])
	}
	return &Shader{
		Stage: ShaderStageFromPath(path),
		Code:  code,
	}, nil
}

// ShaderStageFromPath reads the stage from names like "builtin.vert.spv".
func ShaderStageFromPath(path string) ShaderStage {
	name := strings.TrimSuffix(filepath.Base(path), ".spv")
	switch filepath.Ext(name) {
	case ".vert":
		return SHADER_STAGE_VERTEX
	case ".geom":
		return SHADER_STAGE_GEOMETRY
	case ".frag":
		return SHADER_STAGE_FRAGMENT
	case ".comp":
		return SHADER_STAGE_COMPUTE
	}
	return SHADER_STAGE_UNKNOWN
}
