// Command flowquery runs a single query against a fresh Engine and
// prints its result rows as JSON, one array per invocation. Spec §1
// scopes the interactive REPL out of this repo's goal; this is the
// one-shot CLI surface left in its place.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/flowquery-go/flowquery/engine"
	"github.com/flowquery-go/flowquery/value"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "flowquery:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("flowquery", flag.ContinueOnError)
	query := fs.String("e", "", "query text to run (reads stdin if omitted)")
	configPath := fs.String("config", "", "path to a YAML config file")
	user := fs.String("user", "", "user name to authenticate and authorize as")
	password := fs.String("password", "", "password for -user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text := *query
	if text == "" {
		raw, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading query from stdin: %w", err)
		}
		text = string(raw)
	}

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		c, err := engine.LoadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = c
	}

	e, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	if err := e.Auth.Authenticate(*user, *password); err != nil {
		return err
	}

	rows, err := e.Query(context.Background(), *user, text)
	if err != nil {
		return err
	}

	return printRows(os.Stdout, rows)
}

func printRows(w *os.File, rows []value.Record) error {
	out := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		rec := make(map[string]interface{}, r.Len())
		for _, k := range r.Keys() {
			v, _ := r.Get(k)
			rec[k] = value.ToRecord(v)
		}
		out[i] = rec
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
