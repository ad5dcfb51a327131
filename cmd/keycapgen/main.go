// Command keycapgen engraves characters into a base keycap STL and
// writes one STL per character, or a single zip archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/unixpickle/essentials"

	keycap "github.com/Luvlab/ep-keycap-generator"
)

func main() {
	bodyPath := flag.String("body", "", "path to base keycap STL")
	fontPath := flag.String("font", "", "path to TTF/OTF font file")
	chars := flag.String("chars", "", "characters to engrave, one keycap each")
	size := flag.Float64("size", keycap.DefaultTextSize, "text size in mm")
	depth := flag.Float64("depth", keycap.DefaultEngraveDepth, "engrave depth in mm")
	offsetX := flag.Float64("offset-x", 0, "manual X offset in mm")
	offsetY := flag.Float64("offset-y", 0, "manual Y offset in mm")
	noMirror := flag.Bool("no-mirror", false, "do not mirror glyphs for bottom-face engraving")
	resolution := flag.Float64("resolution", 0, "boolean grid spacing in mm (0 = default)")
	workers := flag.Int("workers", 0, "parallel jobs (0 = GOMAXPROCS)")
	outPath := flag.String("out", ".", "output directory, or a .zip path for a single archive")
	verbose := flag.Bool("v", false, "log pipeline progress to stderr")
	flag.Parse()

	if *bodyPath == "" || *fontPath == "" || *chars == "" {
		flag.Usage()
		os.Exit(2)
	}

	if *verbose {
		keycap.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	font, err := keycap.LoadFont(*fontPath)
	if err != nil {
		log.Fatalf("load font: %v", err)
	}
	body, err := keycap.LoadBodyFile(*bodyPath)
	if err != nil {
		log.Fatalf("load body: %v", err)
	}

	pipeline := keycap.NewPipeline(font, body, keycap.Config{
		Resolution:    *resolution,
		DisableMirror: *noMirror,
	})

	var jobs []keycap.Job
	id := 1
	for _, r := range *chars {
		jobs = append(jobs, keycap.Job{
			ID:      id,
			Char:    r,
			OffsetX: *offsetX,
			OffsetY: *offsetY,
		})
		id++
	}

	artifacts := pipeline.GenerateBatch(context.Background(), keycap.Batch{
		Jobs:         jobs,
		DefaultSize:  *size,
		EngraveDepth: *depth,
	}, *workers)

	if strings.HasSuffix(strings.ToLower(*outPath), ".zip") {
		f, err := os.Create(*outPath)
		essentials.Must(err)
		essentials.Must(keycap.PackZip(f, artifacts))
		essentials.Must(f.Close())
		fmt.Printf("wrote %s (%d keycaps)\n", *outPath, len(artifacts))
		return
	}

	for _, a := range artifacts {
		path := filepath.Join(*outPath, a.Name)
		essentials.Must(os.WriteFile(path, a.STL, 0o644))
		fmt.Printf("wrote %s\n", path)
	}
}
