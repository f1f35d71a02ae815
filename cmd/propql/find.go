package main

import (
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema/pg"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/session"
	pgxsession "github.com/krew-solutions/ascetic-props-go/asceticprops/session/pgx"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/store"
)

type objectReport struct {
	ID       int64  `yaml:"id"`
	ParentID *int64 `yaml:"parent_id,omitempty"`
	SchemeID int64  `yaml:"scheme_id"`
	Name     string `yaml:"name,omitempty"`
	Hash     string `yaml:"hash"`
}

func newFindCommand(a *app) *cobra.Command {
	var (
		queryFile string
		count     bool
	)
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Run a query against a props database",
		Long: `Run a query against a props database. Schemes are loaded from the
database's _structures table; --schema files are not used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tq, err := loadQueryFile(queryFile)
			if err != nil {
				return err
			}
			dsn := a.v.GetString("dsn")
			if dsn == "" {
				return errors.New("--dsn (or PROPQL_DSN) is required")
			}
			ctx := commandContext(cmd)
			pool, err := pgxsession.Connect(ctx, dsn)
			if err != nil {
				return errors.Wrap(err, "connect")
			}
			defer pool.Close()

			st := store.NewStore(a.compiler(pg.NewProvider(pool), prometheus.NewRegistry()), store.WithLogger(a.logger))
			return pool.Session(ctx, func(s session.DbSession) error {
				if count {
					n, err := st.Count(s, tq)
					if err != nil {
						return err
					}
					return writeYAML(cmd.OutOrStdout(), map[string]int64{"count": n})
				}
				rows, err := st.Find(s, tq)
				if err != nil {
					return err
				}
				level.Info(a.logger).Log("msg", "query finished", "rows", len(rows))
				report := make([]objectReport, len(rows))
				for i, r := range rows {
					report[i] = objectReport{
						ID:       r.ID,
						ParentID: r.ParentID.Ptr(),
						SchemeID: r.SchemeID,
						Name:     r.Name.UnwrapOr(""),
						Hash:     r.Hash.String(),
					}
				}
				return writeYAML(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&queryFile, "query", "", "query document (yaml)")
	cmd.Flags().String("dsn", "", "postgres connection string")
	cmd.Flags().BoolVar(&count, "count", false, "print the number of matches instead of rows")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
