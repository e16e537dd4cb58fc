package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuelflux/core/catalog"
	"github.com/fuelflux/core/config"
)

var fixturesFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import stations, tanks, pumps and users from a YAML fixtures file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage == config.StorageMemory {
			return errors.New("seeding memory storage has no lasting effect; use server --seed instead")
		}
		repo, closeRepo, err := openRepository(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeRepo()

		n, err := importFixtures(catalog.New(repo), fixturesFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entities from %s\n", n, fixturesFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&fixturesFile, "file", "f", "", "Path to the YAML fixtures file")
	seedCmd.MarkFlagRequired("file")
}

func importFixtures(cat *catalog.Catalog, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close()

	fixtures, err := catalog.ParseFixtures(f)
	if err != nil {
		return 0, err
	}
	n, err := cat.Import(fixtures)
	if err != nil {
		return n, fmt.Errorf("failed to import fixtures: %w", err)
	}
	return n, nil
}
