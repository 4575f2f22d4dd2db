package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/areajoin/internal/config"
	"github.com/areajoin/internal/dataset"
	"github.com/areajoin/internal/db"
	"github.com/areajoin/internal/join"
	"github.com/areajoin/internal/normalize"
	"github.com/areajoin/internal/similarity"
)

type joinFlags struct {
	listings        string
	demographics    string
	demographicsSQL string
	renameListings  []string
	renameAreas     []string

	leftKey   string
	rightKey  string
	preset    string
	kind      string
	mode      string
	threshold float64

	noBlocking    bool
	scoreColumn   string
	matchedColumn string
	dropUnmatched bool

	out     string
	preview int
}

// createJoinCmd creates the join subcommand
func createJoinCmd(a *app) *cobra.Command {
	var f joinFlags

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join listings to demographics on a fuzzy key",
		Long: `Normalize the listing and demographic key columns, match every listing to its most
similar area at or above the threshold, and write the left-joined table as CSV.

Kind, mode and threshold must be given explicitly or through --preset.`,
		Example: `  areajoin join --listings listings.csv --demographics areas.csv \
    --left-key postal_code --right-key area --kind postal --mode ratio --threshold 70

  areajoin join --listings listings.csv --demographics areas.csv \
    --left-key address --right-key area --preset address --out joined.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, map[string]string{
				"workers":      "workers",
				"null_marker":  "null-marker",
				"database.dsn": "dsn",
			}); err != nil {
				return err
			}
			opts, err := f.options(cmd, a.cfg)
			if err != nil {
				return err
			}
			return a.runJoin(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), f, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.listings, "listings", "", "Listings CSV file")
	flags.StringVar(&f.demographics, "demographics", "", "Demographics CSV file")
	flags.StringVar(&f.demographicsSQL, "demographics-sql", "", "Load demographics with this SQL query instead of a CSV file")
	flags.String("dsn", "", "Database DSN for --demographics-sql (postgres://..., sqlite://...)")
	flags.StringSliceVar(&f.renameListings, "rename-listings", nil, "Rename listing columns, old=new")
	flags.StringSliceVar(&f.renameAreas, "rename-demographics", nil, "Rename demographic columns, old=new")

	flags.StringVar(&f.leftKey, "left-key", "", "Listing key column")
	flags.StringVar(&f.rightKey, "right-key", "", "Demographic key column")
	flags.StringVar(&f.preset, "preset", "", "Named settings: postal or address")
	flags.StringVar(&f.kind, "kind", "", "Key normalization: postal or text")
	flags.StringVar(&f.mode, "mode", "", "Similarity: ratio, token-sort or levenshtein")
	flags.Float64Var(&f.threshold, "threshold", 0, "Minimum score to accept a match, 0-100")

	flags.Int("workers", 0, "Matching goroutines (0 = one per CPU)")
	flags.BoolVar(&f.noBlocking, "no-blocking", false, "Score every candidate instead of skipping those ruled out by length")
	flags.StringVar(&f.matchedColumn, "matched-column", join.DefaultMatchedColumn, "Name of the added matched key column")
	flags.StringVar(&f.scoreColumn, "score-column", "", "Also add the match score under this column name")
	flags.BoolVar(&f.dropUnmatched, "drop-unmatched", false, "Leave listings without a matching area out of the output")

	flags.StringVar(&f.out, "out", "-", "Output CSV file, - for stdout")
	flags.String("null-marker", "", "Text written for missing values")
	flags.IntVar(&f.preview, "preview", 0, "Print the first N joined rows as a table")

	cmd.MarkFlagRequired("listings")
	cmd.MarkFlagRequired("left-key")
	cmd.MarkFlagRequired("right-key")
	cmd.MarkFlagsMutuallyExclusive("demographics", "demographics-sql")
	cmd.MarkFlagsOneRequired("demographics", "demographics-sql")

	return cmd
}

// options resolves kind, mode and threshold from --preset and the explicit
// flags, explicit flags winning.
func (f joinFlags) options(cmd *cobra.Command, cfg *config.Config) (join.Options, error) {
	changed := cmd.Flags().Changed

	var opts join.Options
	if f.preset != "" {
		preset, err := cfg.Preset(f.preset)
		if err != nil {
			return join.Options{}, err
		}
		if opts, err = preset.Options(f.leftKey, f.rightKey); err != nil {
			return join.Options{}, fmt.Errorf("preset %s: %w", f.preset, err)
		}
	} else if !changed("kind") || !changed("mode") || !changed("threshold") {
		return join.Options{}, errors.New("--kind, --mode and --threshold are required unless --preset is given")
	}

	opts.LeftKey = f.leftKey
	opts.RightKey = f.rightKey
	if changed("kind") {
		kind, err := normalize.ParseKind(f.kind)
		if err != nil {
			return join.Options{}, err
		}
		opts.Kind = kind
	}
	if changed("mode") {
		mode, err := similarity.ParseMode(f.mode)
		if err != nil {
			return join.Options{}, err
		}
		opts.Mode = mode
	}
	if changed("threshold") {
		opts.Threshold = f.threshold
	}

	opts.Workers = cfg.Workers
	opts.Blocking = cfg.Blocking && !f.noBlocking
	opts.MatchedColumn = f.matchedColumn
	opts.ScoreColumn = f.scoreColumn

	return opts, opts.Validate()
}

func (a *app) runJoin(ctx context.Context, stdout, stderr io.Writer, f joinFlags, opts join.Options) error {
	listings, err := dataset.ReadCSVFile(f.listings)
	if err != nil {
		return err
	}
	demographics, err := a.loadDemographics(ctx, f)
	if err != nil {
		return err
	}

	if listings, err = rename(listings, f.renameListings); err != nil {
		return err
	}
	if demographics, err = rename(demographics, f.renameAreas); err != nil {
		return err
	}

	extra := []join.JoinOption{join.WithLogger(a.logger), join.WithDebug(a.cfg.Debug)}
	if a.cfg.CacheSize > 0 {
		cache, err := normalize.NewCache(a.cfg.CacheSize)
		if err != nil {
			return err
		}
		extra = append(extra, join.WithCache(cache))
	}

	res, err := join.Join(ctx, listings, demographics, opts, extra...)
	if err != nil {
		return err
	}

	table := res.Table
	if f.dropUnmatched {
		table = matchedOnly(res)
	}

	if err := writeTable(stdout, f.out, table, a.cfg.NullMarker); err != nil {
		return err
	}

	if err := printSummary(stderr, opts, res.Summary, table.Len()); err != nil {
		return err
	}
	if f.preview > 0 {
		return printPreview(stderr, table, f.preview, a.cfg.NullMarker)
	}
	return nil
}

func (a *app) loadDemographics(ctx context.Context, f joinFlags) (join.Table, error) {
	if f.demographicsSQL == "" {
		return dataset.ReadCSVFile(f.demographics)
	}

	dsn := a.cfg.Database.DSN
	if dsn == "" {
		dsn = config.GetEnv("DATABASE_URL", "")
	}

	var conn *db.Connection
	var err error
	if dsn == "" {
		conn, err = db.NewConnection(ctx)
	} else {
		conn, err = db.Open(ctx, dsn)
	}
	if err != nil {
		return join.Table{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	return dataset.LoadSQL(ctx, conn.DB, f.demographicsSQL)
}

func rename(t join.Table, pairs []string) (join.Table, error) {
	if len(pairs) == 0 {
		return t, nil
	}
	aliases, err := dataset.ParseAliases(pairs)
	if err != nil {
		return join.Table{}, err
	}
	return dataset.Rename(t, aliases), nil
}

// matchedOnly drops listings that found no area.
func matchedOnly(res *join.Result) join.Table {
	i := 0
	return res.Table.Filter(func([]join.Cell) bool {
		keep := res.Matches[i].Matched
		i++
		return keep
	})
}

func writeTable(stdout io.Writer, path string, t join.Table, nullMarker string) error {
	if path == "" || path == "-" {
		return dataset.WriteCSV(stdout, t, nullMarker)
	}
	return dataset.WriteCSVFile(path, t, nullMarker)
}

func printSummary(w io.Writer, opts join.Options, s join.Summary, written int) error {
	fmt.Fprintf(w, "\n=== Join Results ===\n")
	table := tablewriter.NewWriter(w)
	table.Header("Setting", "Value")
	rows := [][]string{
		{"Key kind", opts.Kind.String()},
		{"Scorer", opts.Mode.String()},
		{"Threshold", strconv.FormatFloat(opts.Threshold, 'f', -1, 64)},
		{"Listings", strconv.Itoa(s.Rows)},
		{"Areas", strconv.Itoa(s.Candidates)},
		{"Matched", strconv.Itoa(s.Matched)},
		{"Unmatched", strconv.Itoa(s.Unmatched)},
		{"Match rate", fmt.Sprintf("%.2f%%", s.MatchRate())},
		{"Mean score", fmt.Sprintf("%.2f", s.MeanScore)},
		{"Rows written", strconv.Itoa(written)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to build summary: %w", err)
		}
	}
	return table.Render()
}

func printPreview(w io.Writer, t join.Table, n int, nullMarker string) error {
	fmt.Fprintf(w, "\n=== First %d rows ===\n", min(n, t.Len()))
	table := tablewriter.NewWriter(w)
	header := make([]any, len(t.Columns))
	for i, name := range t.Columns {
		header[i] = name
	}
	table.Header(header...)
	for _, row := range t.Rows[:min(n, t.Len())] {
		record := make([]string, len(row))
		for i, c := range row {
			if c.Valid {
				record[i] = c.Value
			} else {
				record[i] = nullMarker
			}
		}
		if err := table.Append(record); err != nil {
			return fmt.Errorf("failed to build preview: %w", err)
		}
	}
	return table.Render()
}
