package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/flowdeck/flowdeck/internal/render"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

func runExport(ctx context.Context, cfg Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	id := fs.String("id", "", "ID of the flowchart to export")
	format := fs.String("format", "mermaid", "output format: mermaid, svg, or png")
	out := fs.String("o", "", "write output to this file (default: stdout; required for png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return schema.NewError(schema.ErrCodeValidation, "-id is required")
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.GetFlowchart(ctx, *id)
	if err != nil {
		return err
	}

	var data []byte
	switch *format {
	case "mermaid":
		data = []byte(render.Mermaid(rec.Document))
	case "svg":
		data = render.ExportSVG(rec.Document)
	case "png":
		if *out == "" {
			return schema.NewError(schema.ErrCodeValidation, "png export requires -o")
		}
		data, err = render.ExportPNG(rec.Document)
		if err != nil {
			return err
		}
	default:
		return schema.NewErrorf(schema.ErrCodeValidation, "unsupported format %q", *format)
	}

	if *out == "" {
		fmt.Print(string(data))
		return nil
	}
	return os.WriteFile(*out, data, 0o644)
}
