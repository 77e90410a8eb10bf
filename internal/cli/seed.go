package cli

import (
	"fmt"
	"os"

	"github.com/soyeahso/caselink/internal/store"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load projections into the database, replacing existing rows",
		Long: "seed loads a YAML dataset (suspects, cases, overlaps, socialEdges) into\n" +
			"the projection database. Without --file the bundled demo data is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				ds  *store.Dataset
				err error
			)
			if file != "" {
				f, openErr := os.Open(file)
				if openErr != nil {
					return openErr
				}
				defer f.Close()
				ds, err = store.LoadDataset(f)
			} else {
				ds, err = store.DemoDataset()
			}
			if err != nil {
				return err
			}

			db, err := store.Open(databasePath(cfg, paths), log)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Seed(cmd.Context(), ds); err != nil {
				return err
			}
			counts, err := db.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d suspects, %d cases, %d overlaps, %d social edges\n",
				databasePath(cfg, paths), counts.Suspects, counts.Cases, counts.Overlaps, counts.SocialEdges)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML dataset to load")
	return cmd
}
