package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"autogif/internal/timing"
	"autogif/internal/tui"
	"autogif/pkg/transcript"
)

var (
	captionsFPS    float64
	captionsFrames int
)

func newCaptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captions <transcript.json>",
		Short: "Show how a transcript is grouped into captions and frames",
		Args:  cobra.ExactArgs(1),
		RunE:  runCaptions,
	}
	cmd.Flags().Float64Var(&captionsFPS, "fps", 0, "Frame rate (default: output.fps)")
	cmd.Flags().IntVar(&captionsFrames, "frames", 0, "Clip length in frames (default: through the last word)")
	return cmd
}

type captionJSON struct {
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Start      float64 `json:"start_s"`
	End        float64 `json:"end_s"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	Words      int     `json:"words"`
	Reason     string  `json:"break_reason,omitempty"`
}

func runCaptions(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadProject()
	if err != nil {
		return err
	}

	words, err := transcript.Load(args[0])
	if err != nil {
		return err
	}

	fps := cfg.Output.FPS
	if cmd.Flags().Changed("fps") {
		fps = captionsFPS
	}
	total := captionsFrames
	if total <= 0 {
		total = int(math.Ceil(transcript.End(words)*fps - 1e-9))
	}

	captions, err := timing.Build(words, cfg.CaptionPolicy(), fps, total)
	if err != nil {
		return err
	}

	if outputJSON {
		out := make([]captionJSON, 0, len(captions))
		for _, c := range captions {
			out = append(out, captionJSON{
				Index:      c.Index,
				Text:       c.Text,
				Start:      c.Start,
				End:        c.End,
				StartFrame: c.StartFrame,
				EndFrame:   c.EndFrame,
				Words:      len(c.Words),
				Reason:     c.Reason,
			})
		}
		payload := struct {
			FPS      float64       `json:"fps"`
			Frames   int           `json:"frames"`
			Captions []captionJSON `json:"captions"`
		}{FPS: fps, Frames: total, Captions: out}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode captions json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d words, %d captions, %d frames at %g fps\n", len(words), len(captions), total, fps)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tTIME\tFRAMES\tBREAK\tTEXT")
	for _, c := range captions {
		frames := "-"
		if c.Visible() {
			frames = fmt.Sprintf("%d-%d", c.StartFrame, c.EndFrame-1)
		}
		fmt.Fprintf(tw, "%03d\t%.2f-%.2f\t%s\t%s\t%s\n",
			c.Index,
			c.Start,
			c.End,
			frames,
			tui.NonEmptyOrDash(c.Reason),
			c.Text,
		)
	}
	return tw.Flush()
}
