package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"autogif/internal/effects"
)

func newEffectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "effects",
		Short: "List the registered text effects",
		Args:  cobra.NoArgs,
		RunE:  runEffects,
	}
}

func runEffects(cmd *cobra.Command, _ []string) error {
	descs := effects.Default().List()

	if outputJSON {
		data, err := json.MarshalIndent(descs, "", "  ")
		if err != nil {
			return fmt.Errorf("encode effects json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tKIND\tANIMATES\tINTENSITY\tDESCRIPTION")
	for _, d := range descs {
		animates := "caption"
		if d.WordLevel {
			animates = "per glyph"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			d.Slug,
			d.DisplayName,
			d.Capability,
			animates,
			d.DefaultIntensity,
			d.Description,
		)
	}
	return tw.Flush()
}
