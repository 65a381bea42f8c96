package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mds"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mexplore"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlogquery"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mplugin"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvar"
	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mvariable"
)

func (a *app) logsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs QUERY",
		Short: "Run a LogsQL query and print normalized log entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qctx, err := a.queryContext(cmd.Context())
			if err != nil {
				return err
			}
			sel, err := a.selector(cmd.Context(), qctx)
			if err != nil {
				return err
			}
			res, err := mlogquery.GetLogData(cmd.Context(), mlogquery.Spec{Query: args[0], Datasource: sel}, qctx)
			if err != nil {
				return err
			}
			return a.writeJSON(res)
		},
	}
}

func (a *app) fieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields QUERY",
		Short: "List field names present in logs matching QUERY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qctx, err := a.queryContext(cmd.Context())
			if err != nil {
				return err
			}
			return a.resolveOptions(cmd.Context(), mvariable.FieldNamesKind, mvariable.FieldNamesSpec{
				Query:      args[0],
				Datasource: a.selectValue(),
			}, qctx)
		},
	}
}

func (a *app) valuesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "values FIELD QUERY",
		Short: "List values of FIELD in logs matching QUERY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qctx, err := a.queryContext(cmd.Context())
			if err != nil {
				return err
			}
			return a.resolveOptions(cmd.Context(), mvariable.FieldValuesKind, mvariable.FieldValuesSpec{
				Field:      args[0],
				Query:      args[1],
				Datasource: a.selectValue(),
			}, qctx)
		},
	}
}

func (a *app) depsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps QUERY [FIELD]",
		Short: "Print the variables a field values variable depends on",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			spec := mvariable.FieldValuesSpec{Query: args[0], Datasource: a.selectValue()}
			if len(args) > 1 {
				spec.Field = args[1]
			}
			plugin, err := variablePlugin(mvariable.FieldValuesKind)
			if err != nil {
				return err
			}
			raw, err := json.Marshal(spec)
			if err != nil {
				return err
			}
			deps, err := plugin.DependsOnRaw(raw)
			if err != nil {
				return err
			}
			return a.writeJSON(deps)
		},
	}
}

func (a *app) pluginsCommand() *cobra.Command {
	var (
		logsOnly bool
		initKind string
	)
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List registered plugins",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if initKind != "" {
				plugin, err := variablePlugin(initKind)
				if err != nil {
					return err
				}
				raw, err := plugin.InitialOptionsRaw()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, string(raw))
				return err
			}
			r, err := mexplore.DefaultRegistry()
			if err != nil {
				return err
			}
			if logsOnly {
				return a.writeJSON(mexplore.New(r).LogDatasourceKinds())
			}
			return a.writeJSON(r.List())
		},
	}
	cmd.Flags().BoolVar(&logsOnly, "logs", false, "only print datasource kinds that support log queries")
	cmd.Flags().StringVar(&initKind, "init", "", "print the initial spec of a variable plugin kind")
	return cmd
}

func (a *app) exploreCommand() *cobra.Command {
	var (
		queries []string
		file    string
	)
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Run several log queries and print results in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(queries) == 0 && file == "" {
				return fmt.Errorf("at least one -q or --file is required")
			}
			qctx, err := a.queryContext(cmd.Context())
			if err != nil {
				return err
			}
			sel, err := a.selector(cmd.Context(), qctx)
			if err != nil {
				return err
			}
			defs, err := definitions(queries, file, sel)
			if err != nil {
				return err
			}

			r, err := mexplore.DefaultRegistry()
			if err != nil {
				return err
			}
			return a.writeJSON(mexplore.New(r).Run(cmd.Context(), defs, qctx))
		},
	}
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "LogsQL query, repeatable")
	cmd.Flags().StringVar(&file, "file", "", "JSON file with an array of query definitions")
	return cmd
}

// definitions 先读取文件中的定义, 再追加 -q 指定的查询
func definitions(queries []string, file string, sel *mds.Selector) ([]mexplore.QueryDefinition, error) {
	defs := []mexplore.QueryDefinition{}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		parsed, err := mexplore.ParseDefinitions(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		defs = append(defs, parsed...)
	}
	for _, q := range queries {
		def, err := mexplore.NewLogQuery(mlogquery.Spec{Query: q, Datasource: sel})
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (a *app) writeOptions(options []mvar.Option) error {
	for _, o := range options {
		if _, err := fmt.Fprintln(a.out, o.Value); err != nil {
			return err
		}
	}
	return nil
}

// variablePlugin 从注册表中取出变量插件
func variablePlugin(kind string) (mvariable.VariablePlugin, error) {
	r, err := mexplore.DefaultRegistry()
	if err != nil {
		return nil, err
	}
	plugin, ok := mplugin.Implementation[mvariable.VariablePlugin](r, mplugin.TypeVariable, kind)
	if !ok {
		return nil, fmt.Errorf("variable plugin %q not registered", kind)
	}
	return plugin, nil
}

// resolveOptions 以 JSON spec 调用变量插件并输出可选项
func (a *app) resolveOptions(ctx context.Context, kind string, spec any, qctx mlogquery.QueryContext) error {
	plugin, err := variablePlugin(kind)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	options, err := plugin.GetVariableOptionsRaw(ctx, raw, mvariable.OptionsContext{
		TimeRange:   qctx.TimeRange,
		Variables:   qctx.Variables,
		Datasources: qctx.Datasources,
	})
	if err != nil {
		return err
	}
	return a.writeOptions(options)
}
