package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix <business-id>...",
	Short: "Pairwise distance/duration grid between stored businesses",
	Long:  "Computes an origin-destination distance and travel-time matrix over the given businesses, useful for sizing multi-stop shopping trips before planning a route.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		businesses, err := st.FindByIDs(ctx, args)
		if err != nil {
			return eris.Wrap(err, "matrix: load businesses")
		}
		if len(businesses) < 2 {
			return eris.Wrapf(model.ErrNotFound, "matrix: need at least 2 stored businesses, found %d", len(businesses))
		}

		points := make([]model.LatLng, len(businesses))
		for i := range businesses {
			points[i] = businesses[i].Address.Location
		}

		mode, _ := cmd.Flags().GetString("mode")
		asJSON, _ := cmd.Flags().GetBool("json")

		var provider geo.MatrixProvider = &geo.HaversineMatrix{Mode: geo.TravelMode(mode)}
		grid, err := provider.DistanceMatrix(ctx, points, points)
		if err != nil {
			return eris.Wrap(err, "matrix: compute")
		}

		if asJSON {
			return printJSON(os.Stdout, grid)
		}

		formatMatrix(os.Stdout, businesses, grid)
		return nil
	},
}

func formatMatrix(out io.Writer, businesses []model.Business, grid [][]geo.MatrixCell) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprint(w, "FROM \\ TO")
	for _, b := range businesses {
		_, _ = fmt.Fprintf(w, "\t%s", matrixLabel(b.Name))
	}
	_, _ = fmt.Fprintln(w)

	for i, row := range grid {
		_, _ = fmt.Fprint(w, matrixLabel(businesses[i].Name))
		for _, cell := range row {
			if cell.Status != geo.MatrixCellOK {
				_, _ = fmt.Fprint(w, "\t-")
				continue
			}
			_, _ = fmt.Fprintf(w, "\t%.1fkm/%s",
				cell.DistanceMeters/1000,
				cell.Duration.Round(time.Minute))
		}
		_, _ = fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func matrixLabel(name string) string {
	if len(name) > 16 {
		return name[:13] + "..."
	}
	return name
}

func init() {
	matrixCmd.Flags().String("mode", "driving", "travel mode: driving, walking, or bicycling")
	matrixCmd.Flags().Bool("json", false, "print the grid as JSON")
	rootCmd.AddCommand(matrixCmd)
}
