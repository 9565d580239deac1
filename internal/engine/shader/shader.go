// Package shader compiles GLSL programs and uploads uniforms.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

// CompileProgram compiles and links a vertex and fragment shader pair.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vs, err := compile(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compile(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		msg := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", msg)
	}
	return program, nil
}

func compile(source string, kind uint32) (uint32, error) {
	sh := gl.CreateShader(kind)
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(sh, 1, csrc, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		msg := infoLog(sh, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("compile: %s", msg)
	}
	return sh, nil
}

func infoLog(obj uint32, param func(uint32, uint32, *int32), get func(uint32, int32, *int32, *uint8)) string {
	var n int32
	param(obj, gl.INFO_LOG_LENGTH, &n)
	buf := make([]byte, max(n, 1))
	get(obj, n, nil, &buf[0])
	return gl.GoStr(&buf[0])
}

// GetUniform returns the location of name, or -1 if it is unused.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// RequireUniform is GetUniform for uniforms the program cannot work without.
func RequireUniform(program uint32, name string) (int32, error) {
	loc := GetUniform(program, name)
	if loc < 0 {
		return -1, fmt.Errorf("uniform %q not found in program %d", name, program)
	}
	return loc, nil
}

// SetMat4 uploads m. Negative locations are ignored.
func SetMat4(loc int32, m math.Mat4) {
	if loc < 0 {
		return
	}
	gl.UniformMatrix4fv(loc, 1, false, m.Ptr())
}

// SetMat4Array uploads ms to a mat4 array uniform.
func SetMat4Array(loc int32, ms []math.Mat4) {
	if loc < 0 || len(ms) == 0 {
		return
	}
	gl.UniformMatrix4fv(loc, int32(len(ms)), false, ms[0].Ptr())
}
