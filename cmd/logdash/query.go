package main

import (
	"encoding/json"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mchurichi/logdash/pkg/filter"
)

// criteriaFlags mirror the query parameters of /api/logs.
type criteriaFlags struct {
	level         string
	file          string
	metadataKey   string
	metadataValue string
	start         string
	end           string
	where         string
}

func (f *criteriaFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.level, "level", "l", "", "Only records with this level")
	fs.StringVarP(&f.file, "file", "f", "", "Only records from this file (base name)")
	fs.StringVar(&f.metadataKey, "metadata-key", "", "Metadata key to match (with --metadata-value)")
	fs.StringVar(&f.metadataValue, "metadata-value", "", "Metadata value to match (with --metadata-key)")
	fs.StringVar(&f.start, "start", "", "Earliest timestamp, ISO-8601 (e.g. 2024-01-01 or 2024-01-01T10:00)")
	fs.StringVar(&f.end, "end", "", "Latest timestamp, ISO-8601")
	fs.StringVarP(&f.where, "where", "w", "", `Boolean expression, e.g. 'metadata.job_id > 40 && level != "DEBUG"'`)
}

func (f *criteriaFlags) criteria() (filter.Criteria, error) {
	return filter.ParseCriteria(url.Values{
		filter.ParamLevel:         {f.level},
		filter.ParamFile:          {f.file},
		filter.ParamMetadataKey:   {f.metadataKey},
		filter.ParamMetadataValue: {f.metadataValue},
		filter.ParamStartDate:     {f.start},
		filter.ParamEndDate:       {f.end},
		filter.ParamWhere:         {f.where},
	})
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		f       criteriaFlags
		compact bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print matching records and statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := f.criteria()
			if err != nil {
				return err
			}
			res, err := a.engine().Query(cmd.Context(), criteria)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on a single line")
	return cmd
}
