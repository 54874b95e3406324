package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"autogif/internal/paths"
	"autogif/internal/render/state"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the GIFs rendered in this project",
		RunE:  runStatus,
	}
	return cmd
}

type statusRow struct {
	Output     string    `json:"output"`
	Source     string    `json:"source"`
	Effect     string    `json:"effect"`
	FrameCount int       `json:"frame_count"`
	RenderedAt time.Time `json:"rendered_at"`
	Exists     bool      `json:"exists"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadProject()
	if err != nil {
		return err
	}
	if err := ensureProjectDirs(pp); err != nil {
		return err
	}

	rows, err := loadStatusRows(pp)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Project string      `json:"project"`
			Effect  string      `json:"effect"`
			Output  string      `json:"output_dir"`
			Rows    []statusRow `json:"rows"`
		}{pp.Root, cfg.Effect.Slug, pp.OutputDir, rows})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project: %s\n", pp.Root)
	fmt.Fprintf(out, "Output:  %s\n", pp.OutputDir)
	fmt.Fprintf(out, "Effect:  %s\n\n", nonEmptyOr(cfg.Effect.Slug, "none"))
	writeStatusTable(out, pp.Root, rows)
	return nil
}

func loadStatusRows(pp paths.ProjectPaths) ([]statusRow, error) {
	rs, err := state.Load(pp.StateFile)
	if err != nil {
		return nil, fmt.Errorf("load render state: %w", err)
	}
	rows := make([]statusRow, 0, len(rs.Outputs))
	for path, out := range rs.Outputs {
		_, statErr := os.Stat(path)
		rows = append(rows, statusRow{
			Output:     path,
			Source:     out.SourcePath,
			Effect:     out.Effect,
			FrameCount: out.FrameCount,
			RenderedAt: out.RenderedAt,
			Exists:     statErr == nil,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Output < rows[j].Output })
	return rows, nil
}

func writeStatusTable(out io.Writer, root string, rows []statusRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No renders recorded yet. Run `autogif render`.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTPUT\tEFFECT\tFRAMES\tRENDERED\tSTATE")
	for _, r := range rows {
		st := "ok"
		if !r.Exists {
			st = "missing"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			relativeToProject(root, r.Output),
			nonEmptyOr(r.Effect, "-"),
			r.FrameCount,
			r.RenderedAt.Local().Format("2006-01-02 15:04"),
			st,
		)
	}
	tw.Flush()
}
