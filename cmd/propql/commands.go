package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/compiler"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/facet"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/fieldpath"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/plancache"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema"
)

type fieldReport struct {
	StructureID         int64  `yaml:"structure_id"`
	DbType              string `yaml:"db_type"`
	Collection          string `yaml:"collection"`
	Selector            string `yaml:"selector"`
	SelectorKey         string `yaml:"selector_key,omitempty"`
	SelectorIndex       *int   `yaml:"selector_index,omitempty"`
	SelectorStructureID int64  `yaml:"selector_structure_id,omitempty"`
	ListItemValue       bool   `yaml:"list_item_value,omitempty"`
}

type resolveReport struct {
	Scheme     int64                  `yaml:"scheme"`
	Resolved   map[string]fieldReport `yaml:"resolved"`
	Unresolved []string               `yaml:"unresolved,omitempty"`
}

func newResolveCommand(a *app) *cobra.Command {
	var schemeID int64
	cmd := &cobra.Command{
		Use:   "resolve PATH...",
		Short: "Resolve field paths against a scheme",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemes, err := a.schemas()
			if err != nil {
				return err
			}
			if schemeID == 0 {
				schemeID = schemes[0].ID
			}
			resolver := fieldpath.NewResolver(schema.NewStaticProvider(schemes...))
			resolved, err := resolver.ResolveMany(commandContext(cmd), schemeID, args)
			if err != nil {
				return err
			}
			report := resolveReport{Scheme: schemeID, Resolved: make(map[string]fieldReport)}
			for _, path := range args {
				fi, ok := resolved[path]
				if !ok {
					report.Unresolved = append(report.Unresolved, path)
					continue
				}
				report.Resolved[path] = reportField(fi)
			}
			return writeYAML(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().Int64Var(&schemeID, "scheme", 0, "scheme id (default: the first --schema)")
	return cmd
}

func reportField(fi fieldpath.FieldInfo) fieldReport {
	r := fieldReport{
		StructureID:   fi.StructureID,
		DbType:        string(fi.DbType),
		Collection:    fi.Collection.String(),
		Selector:      fi.Selector.Kind.String(),
		ListItemValue: fi.ListItemValue,
	}
	if fi.Element() {
		r.SelectorStructureID = fi.SelectorStructureID
	}
	switch fi.Selector.Kind {
	case fieldpath.SelectorKey:
		r.SelectorKey = fi.Selector.Key
	case fieldpath.SelectorIndex:
		index := fi.Selector.Index
		r.SelectorIndex = &index
	}
	return r
}

func newKeyCommand(a *app) *cobra.Command {
	var queryFile string
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Print the structural cache key of a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			tq, err := loadQueryFile(queryFile)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), plancache.BuildQueryKey(tq)+"\n")
			return err
		},
	}
	cmd.Flags().StringVar(&queryFile, "query", "", "query document (yaml)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

type explainReport struct {
	Key    string `yaml:"key"`
	Empty  bool   `yaml:"empty,omitempty"`
	SQL    string `yaml:"sql"`
	Facets string `yaml:"facets,omitempty"`
	Order  string `yaml:"order"`
	Params []any  `yaml:"params"`
	Count  string `yaml:"count_sql,omitempty"`

	DepthCheck       string `yaml:"depth_check,omitempty"`
	DepthCheckParams []any  `yaml:"depth_check_params,omitempty"`
}

func newExplainCommand(a *app) *cobra.Command {
	var (
		queryFile string
		withCount bool
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show the SQL, facets and parameters a query compiles to",
		RunE: func(cmd *cobra.Command, args []string) error {
			tq, err := loadQueryFile(queryFile)
			if err != nil {
				return err
			}
			schemes, err := a.schemas()
			if err != nil {
				return err
			}
			c := a.compiler(schema.NewStaticProvider(schemes...), prometheus.NewRegistry())
			plan, params, err := c.Compile(commandContext(cmd), tq)
			if err != nil {
				return err
			}
			report := explainReport{
				Key:    plan.Key(),
				Empty:  plan.Empty(),
				SQL:    plan.SQL(),
				Facets: string(plan.Facets()),
				Order:  string(plan.Order()),
				Params: params,
			}
			if plan.DepthCheck() != "" {
				report.DepthCheck = plan.DepthCheck()
				if report.DepthCheckParams, err = plan.BindDepthCheck(tq); err != nil {
					return err
				}
			}
			if withCount {
				countPlan, _, err := c.CompileCount(commandContext(cmd), tq)
				if err != nil {
					return err
				}
				report.Count = countPlan.SQL()
			}
			return writeYAML(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&queryFile, "query", "", "query document (yaml)")
	cmd.Flags().BoolVar(&withCount, "count", false, "also show the count statement")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func (a *app) compiler(provider schema.Provider, reg prometheus.Registerer) *compiler.Compiler {
	cache := plancache.New[*facet.Plan](a.cacheConfig(), plancache.WithMetrics(plancache.NewMetrics(reg)))
	builder := facet.NewSQLBuilder(facet.WithNativeConditionFunction(a.v.GetString("native-function")))
	return compiler.New(fieldpath.NewResolver(provider), cache, builder, compiler.WithLogger(a.logger))
}

func loadQueryFile(file string) (*query.TreeQueryContext, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	tq, err := LoadQuery(data)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	return tq, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
