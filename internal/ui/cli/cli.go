package cli

import (
	"flag"
	"io"
)

type cliOptions struct {
	configPath  string
	configSet   bool
	format      string
	out         string
	watch       bool
	metricsAddr string
	listUnits   bool
	verbose     bool
	version     bool
	args        []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("layercheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "layercheck.toml", "Path to config file")
	fs.StringVar(&opts.format, "format", "", "Report format: text, markdown, json, sarif, junit (overrides output.format)")
	fs.StringVar(&opts.out, "out", "", "Write the report to this file instead of stdout (overrides output.path)")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run the check whenever sources or the config change")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address while watching")
	fs.BoolVar(&opts.listUnits, "list-units", false, "Print the loaded snapshot instead of checking rules")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.Usage = func() {
		io.WriteString(stderr, "usage: layercheck [flags] [root]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			opts.configSet = true
		}
	})

	opts.args = fs.Args()
	return opts, nil
}
