package main

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/vanshika/fraudring/internal/generator"
)

func newDatagenCmd(opts *options) *cobra.Command {
	gen := generator.DefaultConfig()
	var out string
	cmd := &cobra.Command{
		Use:   "datagen",
		Short: "Generate synthetic fraud rings as a top-rings envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := generator.New(gen).TopRings(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return generator.Encode(cmd.OutOrStdout(), resp)
			}

			path, err := homedir.Expand(out)
			if err != nil {
				return fmt.Errorf("expand %s: %w", out, err)
			}
			if err := generator.WriteTopRings(resp, path); err != nil {
				return err
			}
			if !opts.jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %d rings to %s\n", good.Sprint("✓"), len(resp.Rings), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	bindGeneratorFlags(cmd, &gen)
	return cmd
}

func bindGeneratorFlags(cmd *cobra.Command, cfg *generator.Config) {
	flags := cmd.Flags()
	flags.IntVar(&cfg.NumRings, "rings", cfg.NumRings, "Number of rings")
	flags.IntVar(&cfg.MinSize, "min-size", cfg.MinSize, "Smallest ring size")
	flags.IntVar(&cfg.MaxSize, "max-size", cfg.MaxSize, "Largest ring size")
	flags.IntVar(&cfg.MaxDisplayed, "max-displayed", cfg.MaxDisplayed, "Members kept per ring before truncation")
	flags.Float64Var(&cfg.ExtraLinkChance, "link-chance", cfg.ExtraLinkChance, "Chance of extra links between members")
	flags.Int64Var(&cfg.Seed, "data-seed", cfg.Seed, "Generator seed")
}
