// modelinfo inspects model files without opening a window.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/Faultbox/glmodel/internal/engine/gpu"
	"github.com/Faultbox/glmodel/internal/engine/model"
	"github.com/Faultbox/glmodel/internal/engine/texture"
	"github.com/Faultbox/glmodel/internal/logger"
	"github.com/Faultbox/glmodel/pkg/importer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "textures", "tex":
		cmdTextures(args)
	case "load":
		cmdLoad(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`modelinfo - model file inspector

Usage:
  modelinfo <command> [options] <model>

Commands:
  info <model>                     Show the scene graph, meshes and materials
  textures [-subdir D] <model>     Show where each texture reference resolves
  load [-subdir D] [-v] <model>    Run a full load on a headless device and print the report

Supported formats: ` + strings.Join(importer.Extensions(), ", ") + `

Examples:
  modelinfo info assets/trees/trees.obj
  modelinfo textures -subdir maps assets/crate.gltf
  modelinfo load -v assets/trees/trees.obj`)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modelinfo info <model>")
		os.Exit(1)
	}

	scene, err := importer.ReadFile(args[0], importer.DefaultFlags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model: %s\n", args[0])
	if scene.Incomplete() {
		fmt.Println("Scene: INCOMPLETE (no meshes)")
	}
	fmt.Printf("Meshes: %d, Materials: %d, Embedded textures: %d\n\n",
		len(scene.Meshes), len(scene.Materials), len(scene.Textures))

	fmt.Println("Nodes:")
	printNode(scene.Root, 1)

	fmt.Println("\nMeshes:")
	for i, m := range scene.Meshes {
		mat := "-"
		if m.MaterialIndex >= 0 && m.MaterialIndex < len(scene.Materials) {
			mat = scene.Materials[m.MaterialIndex].Name
		}
		fmt.Printf("  [%d] %-24s verts=%-7d faces=%-7d normals=%-5v uvs=%-5v material=%s\n",
			i, m.Name, len(m.Positions), len(m.Faces), m.HasNormals(), m.HasTexCoords(), mat)
	}

	fmt.Println("\nMaterials:")
	for i, mat := range scene.Materials {
		fmt.Printf("  [%d] %s\n", i, mat.Name)
		for _, tt := range []importer.TextureType{
			importer.TextureDiffuse, importer.TextureBaseColor, importer.TextureSpecular,
			importer.TextureNormal, importer.TextureEmissive,
		} {
			for j := 0; j < mat.TextureCount(tt); j++ {
				fmt.Printf("      %-10s %s\n", tt, mat.Texture(tt, j))
			}
		}
	}
}

func printNode(n *importer.Node, depth int) {
	if n == nil {
		return
	}
	name := n.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("%s%s", strings.Repeat("  ", depth), name)
	if len(n.Meshes) > 0 {
		fmt.Printf("  meshes=%v", n.Meshes)
	}
	fmt.Println()
	for _, c := range n.Children {
		printNode(c, depth+1)
	}
}

func cmdTextures(args []string) {
	fs := flag.NewFlagSet("textures", flag.ExitOnError)
	subdir := fs.String("subdir", texture.DefaultSubdir, "Texture folder next to the model")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modelinfo textures [-subdir D] <model>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	scene, err := importer.ReadFile(path, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dir := model.Dir(path)
	seen := make(map[string]bool)
	missing := 0
	for _, mat := range scene.Materials {
		for _, tt := range []importer.TextureType{importer.TextureDiffuse, importer.TextureBaseColor} {
			for j := 0; j < mat.TextureCount(tt); j++ {
				ref := mat.Texture(tt, j)
				if seen[ref] {
					continue
				}
				seen[ref] = true

				if _, ok := importer.ParseEmbeddedRef(ref); ok {
					fmt.Printf("  %-40s embedded\n", ref)
					continue
				}
				resolved := ""
				for _, candidate := range texture.Candidates(dir, *subdir, texture.Filename(ref)) {
					if _, err := os.Stat(candidate); err == nil {
						resolved = candidate
						break
					}
				}
				if resolved == "" {
					missing++
					resolved = "MISSING"
				}
				fmt.Printf("  %-40s -> %s\n", ref, resolved)
			}
		}
	}
	fmt.Printf("\n%d references, %d missing\n", len(seen), missing)
}

func cmdLoad(args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	subdir := fs.String("subdir", texture.DefaultSubdir, "Texture folder next to the model")
	verbose := fs.Bool("v", false, "Log every texture resolution")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modelinfo load [-subdir D] [-v] <model>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.New(level, logger.FileConfig{}, true)
	defer log.Sync()

	dev := gpu.NewHeadless()
	m := model.Load(path, model.Config{
		Device:        dev,
		TextureSubdir: *subdir,
		Logger:        log,
	})
	report := m.Report()

	fmt.Printf("Model:     %s\n", path)
	fmt.Printf("Status:    %s\n", report.Status)
	fmt.Printf("Meshes:    %d\n", report.Meshes)
	if report.SkippedFaces > 0 {
		fmt.Printf("Skipped:   %d faces\n", report.SkippedFaces)
	}
	s := report.Textures
	fmt.Printf("Textures:  %d loaded, %d cache hits, %d shared, %d failed (%d decodes)\n",
		dev.Stats().Textures, s.Hits, s.Shared, s.Failures, s.Decodes)

	gs := dev.Stats()
	fmt.Printf("GPU:       %d vertices, %d triangles, %.1f KiB texels\n",
		gs.Vertices, gs.Triangles, float64(gs.TextureBytes)/1024)

	if !m.Empty() {
		b := m.Bounds()
		fmt.Printf("Bounds:    min=%v max=%v size=%v\n", b.Min, b.Max, b.Size())
	}

	if err := report.Err(); err != nil {
		fmt.Println("\nErrors:")
		for _, e := range multierr.Errors(err) {
			fmt.Printf("  %v\n", e)
		}
	}

	m.Release()
	if live := dev.Stats().Live; live != 0 {
		fmt.Fprintf(os.Stderr, "leak: %d GPU objects alive after release\n", live)
		os.Exit(2)
	}
	if report.Status == model.StatusFailed {
		os.Exit(1)
	}
}
