package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/vanshika/fraudring/internal/config"
	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/generator"
	"github.com/vanshika/fraudring/internal/graph"
	"github.com/vanshika/fraudring/internal/layout"
	"github.com/vanshika/fraudring/internal/repository"
	"github.com/vanshika/fraudring/internal/ring"
	"github.com/vanshika/fraudring/internal/upstream"
)

func newLayoutCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Run the force layout over fraud rings until they settle",
	}
	cmd.AddCommand(newLayoutFileCmd(opts))
	cmd.AddCommand(newLayoutUpstreamCmd(opts))
	cmd.AddCommand(newLayoutGraphCmd(opts))
	cmd.AddCommand(newLayoutSyntheticCmd(opts))
	return cmd
}

func newLayoutFileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "file [path]",
		Short: "Lay out a ring, a ring list or a top-rings envelope read from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := homedir.Expand(args[0])
			if err != nil {
				return fmt.Errorf("expand %s: %w", args[0], err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			payloads, err := decodeRings(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}
			return runLayout(cmd, opts, "file "+path, payloads)
		},
	}
}

func newLayoutUpstreamCmd(opts *options) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "upstream",
		Short: "Lay out the analytics service's top fraud rings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if baseURL != "" {
				cfg.Upstream.BaseURL = baseURL
			}
			client, err := upstream.New(upstream.Options{
				BaseURL:       cfg.Upstream.BaseURL,
				Timeout:       cfg.Upstream.Timeout,
				RatePerSecond: cfg.Upstream.RatePerSecond,
				Burst:         cfg.Upstream.Burst,
				Logger:        opts.logger(cmd),
			})
			if err != nil {
				return err
			}

			resp, err := client.TopFraudRings(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch top fraud rings: %w", err)
			}
			top, err := upstream.DecodeTopRings(resp.Body)
			if err != nil {
				return err
			}
			if !top.Success {
				return fmt.Errorf("analytics service: %s", top.Error)
			}
			return runLayout(cmd, opts, "upstream "+client.BaseURL(), top.Rings)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "Analytics service URL (default $ANALYTICS_SERVICE_URL)")
	return cmd
}

func newLayoutGraphCmd(opts *options) *cobra.Command {
	var (
		uri     string
		ringIDs []string
		top     int
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Lay out rings stored in the graph database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if uri != "" {
				cfg.Graph.URI = uri
			}
			ctx := cmd.Context()
			client, err := graph.NewNeo4jClient(ctx, graph.Options{
				URI:            cfg.Graph.URI,
				Database:       cfg.Graph.Database,
				Username:       cfg.Graph.Username,
				Password:       cfg.Graph.Password,
				MaxConnections: cfg.Graph.MaxConnections,
			})
			if err != nil {
				return err
			}
			defer client.Close(context.Background())

			payloads, err := fetchGraphRings(ctx, repository.New(client), ringIDs, top, opts.workers)
			if err != nil {
				return err
			}
			return runLayout(cmd, opts, "graph "+cfg.Graph.URI, payloads)
		},
	}
	cmd.Flags().StringVar(&uri, "uri", "", "Bolt URI (default $GRAPH_URI)")
	cmd.Flags().StringSliceVarP(&ringIDs, "ring", "r", nil, "Ring ids to lay out (default: the largest rings)")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of largest rings when --ring is not given")
	return cmd
}

func fetchGraphRings(ctx context.Context, repo *repository.RingRepository, ids []string, top, workers int) ([]domain.RingPayload, error) {
	if len(ids) == 0 {
		return repo.TopRings(ctx, top)
	}
	return repo.FetchRings(ctx, ids, workers)
}

func newLayoutSyntheticCmd(opts *options) *cobra.Command {
	gen := generator.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "synthetic",
		Short: "Lay out generated rings",
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads, err := generator.New(gen).Generate(cmd.Context())
			if err != nil {
				return err
			}
			return runLayout(cmd, opts, fmt.Sprintf("synthetic seed=%d", gen.Seed), payloads)
		},
	}
	bindGeneratorFlags(cmd, &gen)
	return cmd
}

// runLayout builds every payload, lays the valid rings out and prints the
// report. Malformed rings are reported, not fatal.
func runLayout(cmd *cobra.Command, opts *options, source string, payloads []domain.RingPayload) error {
	logger := opts.logger(cmd)
	rep := report{Source: source, Layouts: []layout.Result{}, Skipped: []skipped{}}

	rings, malformed := ring.BuildAll(payloads)
	for _, err := range malformed {
		rep.Skipped = append(rep.Skipped, skippedFrom(err))
	}
	logger.Debug("rings built", "valid", len(rings), "malformed", len(malformed))

	results, err := layout.NewBatch(opts.layoutConfig(), opts.workers).Run(cmd.Context(), rings)
	if err != nil {
		var taskErr *layout.TaskError
		if !errors.As(err, &taskErr) {
			return fmt.Errorf("lay out rings: %w", err)
		}
		for _, e := range taskErr.Errors {
			rep.Skipped = append(rep.Skipped, skipped{Error: e.Error()})
		}
	}
	for _, res := range results {
		if res.Settled {
			rep.Layouts = append(rep.Layouts, res)
		}
	}
	for _, s := range rep.Skipped {
		logger.Warn("ring skipped", "ring_id", s.RingID, "error", s.Error)
	}
	return printReport(cmd.OutOrStdout(), rep, opts.jsonOut)
}

func skippedFrom(err error) skipped {
	var malformed *ring.MalformedRingError
	if errors.As(err, &malformed) {
		return skipped{RingID: malformed.RingID, Error: err.Error()}
	}
	return skipped{Error: err.Error()}
}

// decodeRings accepts a top-rings envelope, a JSON array of rings or a single
// ring.
func decodeRings(data []byte) ([]domain.RingPayload, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var rings []domain.RingPayload
		if err := json.Unmarshal(data, &rings); err != nil {
			return nil, err
		}
		return rings, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["rings"]; ok {
		top, err := upstream.DecodeTopRings(data)
		if err != nil {
			return nil, err
		}
		return top.Rings, nil
	}

	var single domain.RingPayload
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []domain.RingPayload{single}, nil
}
