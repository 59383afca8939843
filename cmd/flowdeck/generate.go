package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/internal/editor"
	"github.com/flowdeck/flowdeck/internal/generate"
	"github.com/flowdeck/flowdeck/internal/history"
	"github.com/flowdeck/flowdeck/internal/logging"
	"github.com/flowdeck/flowdeck/internal/parserclient"
	"github.com/flowdeck/flowdeck/internal/store"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// exampleCode is the built-in snippet behind generate --example.
const exampleCode = `int main() {
  int x = 0;
  int y = 10;

  if (x < y) {
    cout << "x less than y";
    x = x + 1;
  }

  for (int i = 0; i < 5; i++) {
    cout << i;
  }

  return 0;
}`

func runGenerate(ctx context.Context, cfg Config, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	lang := fs.String("lang", "cpp", "source language: pascal or cpp")
	file := fs.String("file", "", "read source code from this file (default: stdin)")
	example := fs.Bool("example", false, "use the built-in example snippet instead of reading source")
	name := fs.String("name", "Untitled", "display name for the stored flowchart")
	id := fs.String("id", "", "overwrite an existing flowchart instead of creating a new one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *lang != "pascal" && *lang != "cpp" {
		return schema.NewErrorf(schema.ErrCodeValidation, "unsupported language %q", *lang)
	}

	code, err := readSource(*file, *example)
	if err != nil {
		return err
	}

	flowchartID := *id
	if flowchartID == "" {
		flowchartID = uuid.New().String()
	}
	ctx = logging.WithFlowchartID(ctx, flowchartID)

	f, usedFallback, err := buildFlowchart(ctx, cfg, code, *lang, logger)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveFlowchart(ctx, &store.FlowchartRecord{
		ID:         flowchartID,
		Name:       *name,
		Language:   *lang,
		SourceCode: code,
		Document:   f,
	}); err != nil {
		return err
	}

	desc := "Generated flowchart from code"
	if usedFallback {
		desc = "Generated flowchart from source scan"
	}
	snapshot, err := history.EncodeSnapshot(f)
	if err != nil {
		return err
	}
	if err := st.AppendHistory(ctx, &store.HistoryRecord{
		ID:          uuid.New().String(),
		FlowchartID: flowchartID,
		Description: desc,
		Snapshot:    snapshot,
	}); err != nil {
		return err
	}

	fmt.Printf("%s\t%d nodes\t%d connections", flowchartID, len(f.Nodes), len(f.Connections))
	if usedFallback {
		fmt.Print("\t(fallback scan)")
	}
	fmt.Println()
	return nil
}

func readSource(file string, example bool) (string, error) {
	if example {
		return exampleCode, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read source file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// buildFlowchart runs the primary parse path through the editor when a
// parser service is configured, and the line scanner otherwise.
func buildFlowchart(ctx context.Context, cfg Config, code, lang string, logger *slog.Logger) (*schema.Flowchart, bool, error) {
	if cfg.ParserURL == "" {
		return generate.Fallback(code), true, nil
	}

	pc := parserclient.New(parserclient.Config{
		BaseURL: cfg.ParserURL,
		Token:   cfg.ParserToken,
		Logger:  logger,
	})
	ctrl := editor.New(editor.Config{Parser: pc, Logger: logger})

	res, err := ctrl.GenerateFromSource(ctx, code, lang)
	if err != nil {
		return nil, false, err
	}
	for _, w := range res.Warnings {
		logger.Warn("parser diagnostic", "message", w)
	}
	return ctrl.Model().Snapshot(), res.UsedFallback, nil
}
