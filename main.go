package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/firefart/proxyclient/internal/helper"
	"github.com/firefart/proxyclient/internal/httpclient"
	"github.com/firefart/proxyclient/internal/properties"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
)

func newLogger(debugMode, jsonOutput bool) *slog.Logger {
	w := os.Stdout
	var level = new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	var replaceFunc func(groups []string, a slog.Attr) slog.Attr
	if debugMode {
		level.Set(slog.LevelDebug)
		// add source file information
		wd, err := os.Getwd()
		if err != nil {
			panic("unable to determine working directory")
		}
		replaceFunc = func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				// remove current working directory and only leave the relative path to the program
				if file, ok := strings.CutPrefix(source.File, wd); ok {
					source.File = file
				}
			}
			return a
		}
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			AddSource:   debugMode,
			ReplaceAttr: replaceFunc,
		})
	} else if !isatty.IsTerminal(w.Fd()) {
		// running as a service
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       level,
			AddSource:   debugMode,
			ReplaceAttr: replaceFunc,
		})
	} else {
		// pretty output
		l := log.InfoLevel
		if debugMode {
			l = log.DebugLevel
		}
		handler = log.NewWithOptions(w, log.Options{
			ReportCaller: debugMode,
			Level:        l,
		})
	}
	return slog.New(handler)
}

type cliOptions struct {
	propertiesFile string
	debug          bool
	jsonOutput     bool
	timeout        time.Duration
	decompress     bool
	proxyHost      string
	proxyPort      string
	proxyUser      string
	proxyPassword  string
	url            string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("could not load .env file: %v. continuing without\n", err)
	}

	var opts cliOptions

	flag.StringVar(&opts.propertiesFile, "properties", helper.LookupEnvOrString("PROXYCLIENT_PROPERTIES", ""), "properties file containing http.proxyHost, http.proxyPort, http.proxyUser and http.proxyPassword. You can also use the PROXYCLIENT_PROPERTIES environment variable or an entry in the .env file to set this parameter.")
	flag.BoolVar(&opts.debug, "debug", helper.LookupEnvOrBool("PROXYCLIENT_DEBUG", false), "Enable DEBUG mode. You can also use the PROXYCLIENT_DEBUG environment variable or an entry in the .env file to set this parameter.")
	flag.BoolVar(&opts.jsonOutput, "json-out", helper.LookupEnvOrBool("PROXYCLIENT_JSON_OUTPUT", false), "Log as JSON. You can also use the PROXYCLIENT_JSON_OUTPUT environment variable or an entry in the .env file to set this parameter.")
	flag.DurationVar(&opts.timeout, "timeout", helper.LookupEnvOrDuration("PROXYCLIENT_TIMEOUT", 1*time.Minute), "http timeout. You can also use the PROXYCLIENT_TIMEOUT environment variable or an entry in the .env file to set this parameter.")
	flag.BoolVar(&opts.decompress, "decompress", helper.LookupEnvOrBool("PROXYCLIENT_DECOMPRESS", false), "request br, gzip and deflate encoded responses and decode them")
	flag.StringVar(&opts.proxyHost, "proxy-host", "", "proxy host, overrides http.proxyHost from the properties file and the HTTP_PROXYHOST environment variable")
	flag.StringVar(&opts.proxyPort, "proxy-port", "", "proxy port, overrides http.proxyPort")
	flag.StringVar(&opts.proxyUser, "proxy-user", "", "proxy user, overrides http.proxyUser")
	flag.StringVar(&opts.proxyPassword, "proxy-password", "", "proxy password, overrides http.proxyPassword")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [url]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.url = flag.Arg(0)

	log := newLogger(opts.debug, opts.jsonOutput)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, log, opts, os.Stdout); err != nil {
		log.Error(err.Error())
		cancel()
		os.Exit(1)
	}
}

// sources returns the property sources in order of precedence:
// flags, properties file, environment
func sources(opts cliOptions) ([]properties.Source, error) {
	flags := properties.Map{}
	helper.SetIfNotEmpty(flags, properties.ProxyHost, opts.proxyHost)
	helper.SetIfNotEmpty(flags, properties.ProxyPort, opts.proxyPort)
	helper.SetIfNotEmpty(flags, properties.ProxyUser, opts.proxyUser)
	helper.SetIfNotEmpty(flags, properties.ProxyPassword, opts.proxyPassword)

	s := []properties.Source{flags}
	if opts.propertiesFile != "" {
		file, err := properties.LoadFile(opts.propertiesFile)
		if err != nil {
			return nil, err
		}
		s = append(s, file)
	}
	return append(s, properties.Environment{}), nil
}

func run(ctx context.Context, log *slog.Logger, opts cliOptions, out io.Writer) error {
	s, err := sources(opts)
	if err != nil {
		return err
	}

	cfg := httpclient.ConfigFromProperties(properties.Chain(s...))
	cfg.Timeout = opts.timeout
	cfg.Decompress = opts.decompress

	client, err := httpclient.New(log, cfg)
	if err != nil {
		return fmt.Errorf("could not create http client: %w", err)
	}

	if route := client.ProxyRoute(); route != nil {
		log.Info("using proxy", slog.String("proxy", helper.SanitizeString(route.String())), slog.Int("credentials", client.CredentialsProvider().Len()))
	} else {
		log.Info("no proxy configured, connecting directly")
	}

	if opts.url == "" {
		return nil
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	resp, err := client.Get(ctx, opts.url)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", helper.SanitizeString(opts.url), err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return fmt.Errorf("error on reading body: %w", err)
	}

	log.Debug("request done", slog.Int("status-code", resp.StatusCode), slog.Int64("body-len", n))
	fmt.Fprintf(out, "%s %d bytes\n", resp.Status, n)
	return nil
}
