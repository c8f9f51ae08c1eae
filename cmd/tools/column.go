package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lychee-technology/eavx"
	"github.com/lychee-technology/eavx/factory"
)

func runColumn(args []string) error {
	if len(args) < 1 {
		printColumnUsage()
		return errors.New("missing subcommand")
	}
	switch args[0] {
	case "add":
		return runColumnAdd(args[1:])
	case "drop":
		return runColumnDrop(args[1:])
	case "list":
		return runColumnList(args[1:])
	default:
		printColumnUsage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func printColumnUsage() {
	fmt.Println("Usage: eavx-tools column <add|drop|list> [options]")
}

type columnOptions struct {
	db         dbOptions
	table      string
	primaryKey string
}

func registerColumnFlags(flags *flag.FlagSet, opts *columnOptions) {
	registerDBFlags(flags, &opts.db)
	flags.StringVar(&opts.table, "table", "", "managed table name (required)")
	flags.StringVar(&opts.primaryKey, "primary-key", "id", "comma-separated primary key fields")
}

func (o columnOptions) engineConfig() (*eavx.Config, error) {
	if o.table == "" {
		return nil, errors.New("-table is required")
	}
	pk := []string{}
	for _, field := range strings.Split(o.primaryKey, ",") {
		if field = strings.TrimSpace(field); field != "" {
			pk = append(pk, field)
		}
	}
	cfg := eavx.DefaultConfig()
	cfg.Database.TableNames = eavx.TableNames{Attributes: o.db.attrsTable, Values: o.db.valsTable}
	cfg.Tables[o.table] = eavx.TableConfig{Enabled: true, PrimaryKey: pk}
	return cfg, nil
}

func runColumnAdd(args []string) error {
	flags := flag.NewFlagSet("column add", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)

	opts := columnOptions{}
	registerColumnFlags(flags, &opts)
	name := flags.String("name", "", "virtual column name (required)")
	colType := flags.String("type", "", "column type, one of: "+supportedTypeList())
	bundle := flags.String("bundle", "", "bundle the column is scoped to (optional)")
	searchable := flags.Bool("searchable", true, "allow filtering and sorting on the column")
	extra := flags.String("extra", "", "opaque settings payload (optional)")
	overwrite := flags.Bool("overwrite", false, "replace an existing definition")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := opts.engineConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := connect(ctx, opts.db)
	if err != nil {
		return err
	}
	defer pool.Close()

	engine, err := factory.NewEngineWithConfig(cfg, pool)
	if err != nil {
		return err
	}

	spec := eavx.ColumnSpec{
		Name:       *name,
		Type:       *colType,
		Bundle:     optionalString(*bundle),
		Searchable: searchable,
		Extra:      optionalString(*extra),
		Overwrite:  *overwrite,
	}
	verrs, err := engine.AddColumn(ctx, opts.table, spec)
	if err != nil {
		return err
	}
	if verrs != nil && verrs.HasErrors() {
		return fmt.Errorf("invalid column spec: %s", verrs.Error())
	}

	fmt.Printf("Column %q added to table %q.\n", *name, opts.table)
	return nil
}

func runColumnDrop(args []string) error {
	flags := flag.NewFlagSet("column drop", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)

	opts := columnOptions{}
	registerColumnFlags(flags, &opts)
	name := flags.String("name", "", "virtual column name (required)")
	bundle := flags.String("bundle", "", "bundle the column is scoped to (optional)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *name == "" {
		return errors.New("-name is required")
	}

	cfg, err := opts.engineConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := connect(ctx, opts.db)
	if err != nil {
		return err
	}
	defer pool.Close()

	engine, err := factory.NewEngineWithConfig(cfg, pool)
	if err != nil {
		return err
	}

	dropped, err := engine.DropColumn(ctx, opts.table, *name, optionalString(*bundle))
	if err != nil {
		return err
	}
	if !dropped {
		return fmt.Errorf("column %q does not exist on table %q", *name, opts.table)
	}

	fmt.Printf("Column %q dropped from table %q.\n", *name, opts.table)
	return nil
}

func runColumnList(args []string) error {
	flags := flag.NewFlagSet("column list", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)

	opts := columnOptions{}
	registerColumnFlags(flags, &opts)
	bundle := flags.String("bundle", "", "restrict the listing to one bundle (optional)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := opts.engineConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := connect(ctx, opts.db)
	if err != nil {
		return err
	}
	defer pool.Close()

	engine, err := factory.NewEngineWithConfig(cfg, pool)
	if err != nil {
		return err
	}

	defs, err := engine.Columns(ctx, opts.table, optionalString(*bundle))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := defs[name]
		scope := "all bundles"
		if def.Bundle != nil {
			scope = "bundle " + *def.Bundle
		}
		fmt.Printf("%-24s %-10s searchable=%-5t %s\n", def.Name, def.Type, def.Searchable, scope)
	}
	fmt.Printf("%d column(s).\n", len(names))
	return nil
}

func supportedTypeList() string {
	types := eavx.SupportedTypes()
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
