// csmtool is a CLI utility for inspecting cascaded shadow map setups without
// a GPU. It prints split distances and light matrices for a configuration.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-csm/internal/config"
	"github.com/Faultbox/midgard-csm/internal/engine/lightcam"
	"github.com/Faultbox/midgard-csm/internal/engine/pssm"
	"github.com/Faultbox/midgard-csm/internal/scenefile"
	"github.com/Faultbox/midgard-csm/pkg/math"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	args = args[1:]

	var err error
	switch command {
	case "splits":
		err = cmdSplits(args, stdout)
	case "matrices", "mat":
		err = cmdMatrices(args, stdout)
	case "bounds":
		err = cmdBounds(args, stdout)
	case "config":
		err = cmdConfig(args, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `csmtool - cascaded shadow map inspector

Usage:
  csmtool <command> [options]

Commands:
  splits   [-config f] [-scene f] [-splits n] [-lambda x]   Print split distances
  matrices [-config f] [-scene f] [-camera kind]           Print per-split light matrices
  bounds   <file.gltf|file.glb>                            Print scene bounds
  config   [-o path]                                       Print or write the default config

Examples:
  csmtool splits -splits 3 -lambda 0.75
  csmtool matrices -camera focused -scene town.glb
  csmtool bounds town.glb
  csmtool config -o ~/.config/midgard-csm/config.yaml`)
}

// setup holds the shared flags of splits and matrices.
type setup struct {
	fs         *flag.FlagSet
	configPath *string
	scenePath  *string
	splits     *int
	lambda     *float64
	camera     *string
}

func newSetup(name string, out io.Writer) *setup {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return &setup{
		fs:         fs,
		configPath: fs.String("config", "", "Path to config file"),
		scenePath:  fs.String("scene", "", "glTF scene whose bounds replace the configured box"),
		splits:     fs.Int("splits", 0, "Number of splits (1-3)"),
		lambda:     fs.Float64("lambda", -1, "Split lambda (0 = uniform, 1 = logarithmic)"),
		camera:     fs.String("camera", "", "Light camera (basic, focused, lispsm, oldlispsm)"),
	}
}

// state is everything a command needs to evaluate one frame.
type state struct {
	cfg        *config.Config
	view, proj math.Mat4
	box        math.Box
	splits     *pssm.Cameras
}

func (s *setup) load(args []string) (*state, error) {
	if err := s.fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.LoadFile(*s.configPath)
	if err != nil {
		return nil, err
	}
	if *s.splits > 0 {
		cfg.Shadow.SplitCount = *s.splits
	}
	if *s.lambda >= 0 {
		cfg.Shadow.SplitLambda = float32(*s.lambda)
	}
	if *s.camera != "" {
		cfg.Shadow.LightCamera = *s.camera
	}
	if *s.scenePath != "" {
		cfg.Scene.File = *s.scenePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st := &state{cfg: cfg, box: cfg.Scene.Box()}
	if cfg.Scene.File != "" {
		if st.box, err = scenefile.Bounds(cfg.Scene.File); err != nil {
			return nil, err
		}
	}

	eye := cfg.Camera.NewOrbitCamera()
	st.view = eye.ViewMatrix()
	st.proj = eye.ProjectionMatrix(cfg.Graphics.Aspect())

	st.splits = pssm.New()
	if err := st.splits.SetSplitCount(cfg.Shadow.SplitCount); err != nil {
		return nil, err
	}
	if err := st.splits.SetSplitLambda(cfg.Shadow.SplitLambda); err != nil {
		return nil, err
	}
	st.splits.Update(st.view, st.proj, st.box)
	return st, nil
}

type splitsReport struct {
	Count     int       `yaml:"count"`
	Lambda    float32   `yaml:"lambda"`
	Near      float32   `yaml:"near"`
	Far       float32   `yaml:"far"`
	Distances []float32 `yaml:"distances,flow"`
}

func cmdSplits(args []string, out io.Writer) error {
	st, err := newSetup("splits", out).load(args)
	if err != nil {
		return err
	}
	return writeYAML(out, splitsReport{
		Count:     st.splits.SplitCount(),
		Lambda:    st.splits.SplitLambda(),
		Near:      st.splits.Near(),
		Far:       st.splits.Far(),
		Distances: st.splits.Distances(),
	})
}

type splitMatrices struct {
	Index           int       `yaml:"index"`
	Near            float32   `yaml:"near"`
	Far             float32   `yaml:"far"`
	LightView       []float32 `yaml:"light_view,flow"`
	LightProjection []float32 `yaml:"light_projection,flow"`
}

type matricesReport struct {
	Camera         string          `yaml:"camera"`
	LightDirection []float32       `yaml:"light_direction,flow"`
	SceneMin       []float32       `yaml:"scene_min,flow"`
	SceneMax       []float32       `yaml:"scene_max,flow"`
	Splits         []splitMatrices `yaml:"splits"`
}

func cmdMatrices(args []string, out io.Writer) error {
	st, err := newSetup("matrices", out).load(args)
	if err != nil {
		return err
	}

	kind, err := lightcam.ParseKind(st.cfg.Shadow.LightCamera)
	if err != nil {
		return err
	}
	cam := st.cfg.Shadow.NewLightCamera()
	dir := st.cfg.Shadow.Direction().Normalize()

	report := matricesReport{
		Camera:         kind.String(),
		LightDirection: vec(dir),
		SceneMin:       vec(st.box.Min),
		SceneMax:       vec(st.box.Max),
	}

	dist := st.splits.Distances()
	for i, proj := range st.splits.Projections() {
		r := cam.Update(lightcam.Params{
			EyeView:        st.view,
			EyeProjection:  proj,
			LightDirection: dir,
			SceneBox:       st.box,
		})
		report.Splits = append(report.Splits, splitMatrices{
			Index:           i,
			Near:            dist[i],
			Far:             dist[i+1],
			LightView:       r.LightView[:],
			LightProjection: r.LightProjection[:],
		})
	}
	return writeYAML(out, report)
}

type boundsReport struct {
	File      string    `yaml:"file"`
	Meshes    int       `yaml:"meshes"`
	Triangles int       `yaml:"triangles"`
	Min       []float32 `yaml:"min,flow"`
	Max       []float32 `yaml:"max,flow"`
	Radius    float32   `yaml:"radius"`
}

func cmdBounds(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New("usage: csmtool bounds <file.gltf|file.glb>")
	}

	scene, err := scenefile.Load(args[0])
	if err != nil {
		return err
	}
	return writeYAML(out, boundsReport{
		File:      args[0],
		Meshes:    len(scene.Meshes),
		Triangles: scene.Triangles(),
		Min:       vec(scene.Bounds.Min),
		Max:       vec(scene.Bounds.Max),
		Radius:    scene.Bounds.Radius(),
	})
}

func cmdConfig(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("o", "", "Write the default config to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *path == "" {
		return writeYAML(out, cfg)
	}
	if err := cfg.SaveTo(*path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", *path)
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func vec(v math.Vec3) []float32 {
	return []float32{v.X, v.Y, v.Z}
}
