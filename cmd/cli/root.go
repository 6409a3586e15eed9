package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/waftester/vulnscan/pkg/cli"
	"github.com/waftester/vulnscan/pkg/config"
	"github.com/waftester/vulnscan/pkg/defaults"
	"github.com/waftester/vulnscan/pkg/duration"
	"github.com/waftester/vulnscan/pkg/ui"
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"CONFIGURATION", []string{"config"}},
	{"DISCOVERY", []string{"sources", "wordlist", "source-rate"}},
	{"PROBING", []string{"concurrency", "timeout", "https", "skip-verify", "proxy", "user-agent"}},
	{"ANALYSIS", []string{"signature", "methods"}},
	{"OUTPUT", []string{"output-dir", "verbose", "silent", "no-color"}},
	{"OBSERVABILITY", []string{"metrics-port", "otel-endpoint", "otel-insecure"}},
}

// rootFlags holds raw flag values. Only flags the user set override the
// defaults and the config file.
type rootFlags struct {
	configPath  string
	opts        config.Options
	metricsPort int
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	prev := ui.SetOutput(stderr)
	defer ui.SetOutput(prev)

	if args == nil {
		// cobra falls back to os.Args when given nil
		args = []string{}
	}
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return defaults.ExitSuccess
	}
	ui.PrintError(err.Error())
	return exitCode(err)
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	f := &rootFlags{opts: config.Default()}

	cmd := &cobra.Command{
		Use:     defaults.ToolName + " <target> [flags]",
		Short:   "Subdomain takeover and 403 bypass scanner",
		Version: defaults.Version,
		Long: `vuln-scan gathers the subdomains of a target domain, sorts them by the
status code they answer with, and checks 404 hosts for subdomain takeover
and 403 hosts for method-based access-control bypass. Results are written
to <output-dir>/<target>/, where <target> is lowercased and stripped of a
leading "*." and a trailing dot: Example.COM. writes to example.com/.`,
		Example: `  vuln-scan example.com
  vuln-scan example.com -c 50 --https -o results
  vuln-scan example.com --sources crtsh,hackertarget
  vuln-scan example.com --wordlist hosts.txt --signature "Fastly error: unknown domain"
  vuln-scan example.com --metrics-port 9090 --otel-endpoint localhost:4317 --otel-insecure`,
		Args: func(cmd *cobra.Command, args []string) error {
			return withCode(defaults.ExitUserError, cobra.ExactArgs(1)(cmd, args))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.resolve(cmd.Flags())
			if err != nil {
				return withCode(defaults.ExitUserError, err)
			}
			ctx, cancel := cli.SignalContext(cmd.Context(), duration.GracePeriod)
			defer cancel()
			return run(ctx, args[0], opts, stdout)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(defaults.ExitUserError, err)
	})

	f.bind(cmd.Flags())

	cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		w := cmd.ErrOrStderr()
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if fl := cmd.Flags().Lookup(name); fl != nil {
					fmt.Fprintln(w, formatFlag(fl))
				}
			}
		}
		fmt.Fprintln(w)
	})

	return cmd
}

// bind registers every flag on fs, with defaults taken from f.opts.
func (f *rootFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "YAML config file (flags override it)")

	// Discovery
	fs.StringSliceVar(&f.opts.Sources, "sources", f.opts.Sources, "Candidate sources: crtsh, hackertarget, file")
	fs.StringVar(&f.opts.Wordlist, "wordlist", "", "File of hostnames to add as candidates")
	fs.IntVar(&f.opts.SourceRateLimit, "source-rate", f.opts.SourceRateLimit, "Upstream source requests per minute")

	// Probing
	fs.IntVarP(&f.opts.Concurrency, "concurrency", "c", f.opts.Concurrency, "Concurrent requests per round")
	fs.DurationVar(&f.opts.Timeout, "timeout", f.opts.Timeout, "Per-request timeout")
	fs.BoolVar(&f.opts.HTTPS, "https", false, "Probe over https instead of http")
	fs.BoolVarP(&f.opts.SkipVerify, "skip-verify", "k", false, "Skip TLS certificate verification")
	fs.StringVar(&f.opts.Proxy, "proxy", "", "HTTP or SOCKS5 proxy URL")
	fs.StringVar(&f.opts.UserAgent, "user-agent", "", "Custom User-Agent string")

	// Analysis
	fs.StringArrayVar(&f.opts.Signatures, "signature", nil, "Extra takeover body signature (repeatable)")
	fs.StringSliceVar(&f.opts.Methods, "methods", f.opts.Methods, "Bypass methods, tried in order")

	// Output
	fs.StringVarP(&f.opts.OutputDir, "output-dir", "o", f.opts.OutputDir, "Parent directory of the per-target results")
	fs.BoolVarP(&f.opts.Verbose, "verbose", "v", false, "Debug logging")
	fs.BoolVarP(&f.opts.Silent, "silent", "s", false, "Only print findings and errors")
	fs.BoolVar(&f.opts.NoColor, "no-color", false, "Disable colored output")

	// Observability
	fs.IntVar(&f.metricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port (0 disables)")
	fs.StringVar(&f.opts.OTelEndpoint, "otel-endpoint", "", "OTLP/gRPC collector for traces (empty disables)")
	fs.BoolVar(&f.opts.OTelInsecure, "otel-insecure", false, "Connect to the OTLP collector without TLS")
}

// resolve layers defaults, the config file and the flags the user set.
func (f *rootFlags) resolve(fs *pflag.FlagSet) (config.Options, error) {
	opts := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Options{}, err
		}
		opts = loaded
	}

	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "sources":
			opts.Sources = f.opts.Sources
		case "wordlist":
			opts.Wordlist = f.opts.Wordlist
		case "source-rate":
			opts.SourceRateLimit = f.opts.SourceRateLimit
		case "concurrency":
			opts.Concurrency = f.opts.Concurrency
		case "timeout":
			opts.Timeout = f.opts.Timeout
		case "https":
			opts.HTTPS = f.opts.HTTPS
		case "skip-verify":
			opts.SkipVerify = f.opts.SkipVerify
		case "proxy":
			opts.Proxy = f.opts.Proxy
		case "user-agent":
			opts.UserAgent = f.opts.UserAgent
		case "signature":
			opts.Signatures = append(opts.Signatures, f.opts.Signatures...)
		case "methods":
			opts.Methods = upper(f.opts.Methods)
		case "output-dir":
			opts.OutputDir = f.opts.OutputDir
		case "verbose":
			opts.Verbose = f.opts.Verbose
		case "silent":
			opts.Silent = f.opts.Silent
		case "no-color":
			opts.NoColor = f.opts.NoColor
		case "metrics-port":
			opts.MetricsAddr = ""
			if f.metricsPort > 0 {
				opts.MetricsAddr = ":" + strconv.Itoa(f.metricsPort)
			}
		case "otel-endpoint":
			opts.OTelEndpoint = f.opts.OTelEndpoint
		case "otel-insecure":
			opts.OTelInsecure = f.opts.OTelInsecure
		}
	})

	if f.metricsPort < 0 || f.metricsPort > 65535 {
		return config.Options{}, fmt.Errorf("%w: metrics port %d out of range", config.ErrInvalidConfig, f.metricsPort)
	}
	if err := opts.Validate(); err != nil {
		return config.Options{}, err
	}
	return opts, nil
}

func upper(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 32
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}
	return "   " + left + right
}
