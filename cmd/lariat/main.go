package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	goflags "github.com/jessevdk/go-flags"

	"github.com/homemade/lariat/listrak"
	"github.com/homemade/lariat/sync"
)

type options struct {
	Config   string `short:"c" long:"config" description:"Path to YAML config file"`
	State    string `short:"s" long:"state" description:"Path to state JSON file from a previous run"`
	Discover bool   `short:"d" long:"discover" description:"Print the stream catalog and exit"`
	CSV      bool   `long:"csv" description:"With --discover, print a CSV summary instead of JSON"`
}

func main() {
	var opts options
	parser := goflags.NewParser(&opts, goflags.Default)
	parser.Name = "lariat"
	parser.LongDescription = "Incremental extractor for Listrak lists, messages and recipient activity."
	if _, err := parser.Parse(); err != nil {
		var flagsErr *goflags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
			return
		}
		os.Exit(1)
	}
	if err := run(opts); err != nil {
		log.Fatalf("lariat: %v", err)
	}
}

func run(opts options) error {
	if opts.Discover {
		return discover(opts.CSV)
	}
	if opts.Config == "" {
		return fmt.Errorf("a config file is required (see --help)")
	}
	config, err := sync.LoadConfigFile(opts.Config)
	if err != nil {
		return err
	}
	ctx := sync.NewSyncContext(config, time.Now())
	if opts.State != "" {
		data, err := os.ReadFile(opts.State)
		if err != nil {
			return fmt.Errorf("failed to read state %w", err)
		}
		if err := ctx.LoadState(data); err != nil {
			return err
		}
	}
	syncer := sync.Syncer{
		SyncContext: ctx,
		Client:      listrak.New(config.API.Endpoint, config.API.Username, config.API.Password),
		Sink:        sync.NewMessageWriter(os.Stdout),
	}
	return syncer.Run(context.Background())
}

func discover(asCSV bool) error {
	entries, err := sync.BuildCatalog(sync.Schemas)
	if err != nil {
		return err
	}
	if asCSV {
		out, err := sync.FormatCatalogCSV(entries)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
	out, err := sync.FormatCatalogJSON(entries)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
