package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/internal/graph"
	"github.com/flowdeck/flowdeck/internal/history"
	"github.com/flowdeck/flowdeck/internal/store"
)

func runNew(ctx context.Context, cfg Config, args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	name := fs.String("name", "Untitled", "display name for the new flowchart")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	f := graph.Seed().Snapshot()
	flowchartID := uuid.New().String()

	if err := st.SaveFlowchart(ctx, &store.FlowchartRecord{
		ID:       flowchartID,
		Name:     *name,
		Document: f,
	}); err != nil {
		return err
	}

	snapshot, err := history.EncodeSnapshot(f)
	if err != nil {
		return err
	}
	if err := st.AppendHistory(ctx, &store.HistoryRecord{
		ID:          uuid.New().String(),
		FlowchartID: flowchartID,
		Description: "Created flowchart",
		Snapshot:    snapshot,
	}); err != nil {
		return err
	}

	fmt.Println(flowchartID)
	return nil
}
