package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/binzume/eggconv/converter"
	"github.com/binzume/eggconv/egg"
	"github.com/binzume/eggconv/geom"
	"github.com/binzume/eggconv/gltfutil"
	"github.com/qmuntal/gltf"
)

func defaultOutputFile(input string) string {
	ext := filepath.Ext(input)
	if strings.ToLower(ext) == ".egg" {
		return input[0:len(input)-len(ext)] + ".glb"
	}
	return input + ".glb"
}

func parseVector(s string) (*geom.Vector3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid vector: %q", s)
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector: %q", s)
		}
		v[i] = float32(f)
	}
	return geom.NewVector3FromArray(v), nil
}

type task struct {
	importOpts *egg.Options
	gltfOpts   converter.EGGToGLTFOption
	offset     *geom.Vector3
}

func (t *task) convert(input, output string) error {
	opts := t.gltfOpts
	doc, scene, err := converter.ConvertFile(input, t.importOpts, &opts)
	if err != nil {
		return err
	}
	if t.offset != nil {
		if err := gltfutil.Transform(doc, nil, t.offset); err != nil {
			return err
		}
	}
	log.Printf("%s: %d meshes, %d materials, %d clips, %d warnings",
		scene.Name, len(scene.Meshes), len(scene.Materials), len(scene.Clips), len(scene.Warnings))
	return gltf.SaveBinary(doc, output)
}

func dump(input string, opts *egg.Options) error {
	scene, err := egg.Load(input, opts)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", scene.Name, scene.CoordinateSystem)
	scene.Walk(func(n *egg.Node, depth int) {
		line := strings.Repeat("  ", depth) + n.Name
		if n.LOD != nil {
			line += fmt.Sprintf(" lod=%g-%g", n.LOD.Min, n.LOD.Max)
		}
		if m := n.Mesh; m != nil {
			line += fmt.Sprintf(" vertices=%d materials=%v uv=%s(%s)",
				len(m.Positions), m.Materials(), m.UVDecision.Action, m.UVDecision.Rule)
			if m.Skin != nil {
				line += " skinned"
			}
		}
		fmt.Println(line)
	})
	if scene.Skeleton != nil {
		fmt.Println("joints:")
		for _, j := range scene.Skeleton.Joints {
			depth := 0
			for p := j.Parent; p != nil; p = p.Parent {
				depth++
			}
			t, r, _ := j.Local.Decompose()
			e := geom.NewHPRFromQuaternion(r).Degrees()
			fmt.Printf("%s%s pos=(%.3f %.3f %.3f) hpr=(%.1f %.1f %.1f)\n",
				strings.Repeat("  ", depth+1), j.Name, t.X, t.Y, t.Z, e.X, e.Y, e.Z)
		}
	}
	for _, c := range scene.Clips {
		fmt.Printf("clip %s: %d frames @ %g fps, %d channels\n", c.Name, c.Frames, c.FPS, len(c.Channels))
	}
	for _, w := range scene.Warnings {
		fmt.Println("warning:", w)
	}
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s input.egg|dir [output.glb|dir]\n", os.Args[0])
		flag.PrintDefaults()
	}
	configFile := flag.String("config", "", "import settings (.yaml/.toml)")
	lod := flag.String("lod", "", "lod policy: import-all, highest-only")
	collision := flag.Bool("collision", false, "import collision geometry")
	skipSkeletal := flag.Bool("skip-skeletal", false, "ignore joints and animations")
	skipAnimOnly := flag.Bool("skip-anim-only", false, "skip files without geometry")
	skipFootprints := flag.Bool("skip-footprints", false, "skip footprint groups")
	scale := flag.Float64("scale", 1, "output scale")
	offset := flag.String("offset", "", "position offset x,y,z")
	forceUnlit := flag.Bool("gltfunlit", false, "unlit all materials")
	webp := flag.Bool("webp", false, "re-encode textures as webp")
	texLimit := flag.Int("texlimit", 0, "texture resolution limit")
	noAnim := flag.Bool("noanim", false, "do not export animations")
	watch := flag.Bool("watch", false, "convert again on change")
	jobs := flag.Int("j", runtime.NumCPU(), "parallel conversions for directories")
	dumpOnly := flag.Bool("dump", false, "print the imported scene")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return
	}

	importOpts := egg.DefaultOptions()
	if *configFile != "" {
		o, err := egg.LoadOptions(*configFile)
		if err != nil {
			log.Fatal(err)
		}
		importOpts = o
	}
	// explicit flags override the settings file
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lod":
			flagErr = importOpts.LODPolicy.UnmarshalText([]byte(*lod))
		case "collision":
			importOpts.ImportCollision = *collision
		case "skip-skeletal":
			importOpts.SkipSkeletal = *skipSkeletal
		case "skip-anim-only":
			importOpts.SkipAnimationOnly = *skipAnimOnly
		case "skip-footprints":
			importOpts.SkipFootprints = *skipFootprints
		}
	})
	if flagErr != nil {
		log.Fatal(flagErr)
	}

	input := flag.Arg(0)
	if *dumpOnly {
		if err := dump(input, importOpts); err != nil {
			log.Fatal(err)
		}
		return
	}

	t := &task{
		importOpts: importOpts,
		gltfOpts: converter.EGGToGLTFOption{
			Scale:                  float32(*scale),
			ForceUnlit:             *forceUnlit,
			TextureWebP:            *webp,
			TextureResolutionLimit: *texLimit,
			SkipAnimations:         *noAnim,
		},
	}
	if *offset != "" {
		v, err := parseVector(*offset)
		if err != nil {
			log.Fatal(err)
		}
		t.offset = v
	}

	stat, err := os.Stat(input)
	if err != nil {
		log.Fatal(err)
	}
	output := flag.Arg(1)
	if stat.IsDir() {
		if output == "" {
			output = input
		}
		if err := t.convertDir(input, output, *jobs); err != nil {
			log.Fatal(err)
		}
	} else {
		if output == "" {
			output = defaultOutputFile(input)
		}
		log.Print("out: ", output)
		if err := t.convert(input, output); err != nil && !errors.Is(err, egg.ErrSkipped) {
			log.Fatal(err)
		}
	}

	if *watch {
		if err := t.watch(input, output, stat.IsDir()); err != nil {
			log.Fatal(err)
		}
	}
}
