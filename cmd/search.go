package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loopline/thriftscout/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for second-hand clothing businesses",
	Long:  "Searches the local cache and, when stale, the Places provider for brechós and thrift stores around a location.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		criteria := criteriaFromFlags(cmd)
		owner, _ := cmd.Flags().GetString("owner")
		asJSON, _ := cmd.Flags().GetBool("json")

		resp, err := env.Service.Search(ctx, criteria, owner)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		zap.L().Info("search complete",
			zap.Int("total", resp.Pagination.Total),
			zap.Bool("cache_hit", resp.Metadata.CacheHit),
			zap.Int("provider_calls", resp.Metadata.ProviderCalls),
		)

		if asJSON {
			return printJSON(os.Stdout, resp)
		}

		if len(resp.Businesses) == 0 {
			fmt.Fprintln(os.Stderr, "No businesses found.")
			return nil
		}

		formatBusinesses(os.Stdout, resp.Businesses)
		fmt.Printf("\nPage %d/%d, %d total\n",
			resp.Pagination.Page, resp.Pagination.TotalPages, resp.Pagination.Total)
		return nil
	},
}

func formatBusinesses(out io.Writer, businesses []model.Business) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tNEIGHBORHOOD\tRATING\tREVIEWS\tDISTANCE")
	_, _ = fmt.Fprintln(w, "----\t------------\t------\t-------\t--------")

	for _, b := range businesses {
		name := b.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}

		rating := "-"
		if b.Rated() {
			rating = fmt.Sprintf("%.1f", b.Rating)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0fm\n",
			name,
			b.Address.Neighborhood,
			rating,
			b.ReviewCount,
			b.DistanceMeters,
		)
	}
	_ = w.Flush()
}

func init() {
	addCriteriaFlags(searchCmd)
	searchCmd.Flags().String("owner", "cli", "owner id recorded with the search")
	searchCmd.Flags().Bool("json", false, "print the full response as JSON")
	rootCmd.AddCommand(searchCmd)
}
