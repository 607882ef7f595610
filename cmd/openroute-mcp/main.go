package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rusq/fsadapter"
	"github.com/rusq/osenv/v2"

	"github.com/vemonet/openroute-mcp/internal/mcp"
	"github.com/vemonet/openroute-mcp/internal/ors"
)

const apiKeyEnv = "OPENROUTESERVICE_API_KEY"

const (
	defPort    = 8888
	defHost    = "localhost"
	defDataDir = "data/generated_routes"
)

var build = "dev"

// secrets defines the names of the supported secret files that we load our
// secrets from.  Inexperienced windows users might have bad experience trying
// to create .env file with the notepad as it will battle for having the
// "txt" extension.  Let it have it.
var secrets = []string{".env", ".env.txt", "secrets.txt"}

// params is the command line parameters.
type params struct {
	apiURL    string
	apiKey    string
	apiConfig string

	dataDir string
	noSave  bool
	noImg   bool
	addHTML bool

	useHTTP bool
	host    string
	port    int

	logFile      string
	traceFile    string
	printVersion bool
	verbose      bool
}

func main() {
	loadSecrets(secrets)

	p, err := parseCmdLine(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if p.printVersion {
		fmt.Println(build)
		return
	}

	lg, stopLog, err := initLog(p.logFile, p.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer stopLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, lg, p); err != nil {
		lg.Error("fatal", "error", err)
		stopLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *slog.Logger, p params) error {
	stopTrace := initTrace(p.traceFile)
	defer stopTrace()

	limits := ors.DefLimits
	if p.apiConfig != "" {
		var err error
		if limits, err = ors.LoadLimits(p.apiConfig); err != nil {
			return fmt.Errorf("invalid api config %q: %w", p.apiConfig, err)
		}
		lg.DebugContext(ctx, "using custom api limits", "filename", p.apiConfig, "per_minute", limits.PerMinute)
	}

	client, err := ors.New(p.apiKey,
		ors.WithBaseURL(p.apiURL),
		ors.WithLimits(limits),
		ors.WithLogger(lg),
	)
	if err != nil {
		return fmt.Errorf("%w (set the %s environment variable or the -api-key flag)", err, apiKeyEnv)
	}

	opts := []mcp.Option{
		mcp.WithLogger(lg),
		mcp.WithNoImages(p.noImg),
		mcp.WithHTMLMaps(p.addHTML),
	}
	if !p.noSave {
		fs, dataDir, err := openStorage(p.dataDir)
		if err != nil {
			return err
		}
		defer fs.Close()
		opts = append(opts, mcp.WithStorage(fs, dataDir))
		lg.InfoContext(ctx, "saving generated routes", "target", p.dataDir)
	} else {
		lg.InfoContext(ctx, "saving generated routes is disabled")
	}

	srv, err := mcp.New(client, opts...)
	if err != nil {
		return err
	}

	return srv.Serve(ctx, p.transport(), net.JoinHostPort(p.host, strconv.Itoa(p.port)))
}

// transport returns the MCP transport selected on the command line.
func (p *params) transport() mcp.Transport {
	if p.useHTTP {
		return mcp.TransportHTTP
	}
	return mcp.TransportStdio
}

// openStorage opens the artifact storage.  A location ending in .zip is
// opened as a ZIP archive, which is write-only: generated routes can not be
// read back through resources or the download endpoint.  Any other location
// is treated as a directory, created if it does not exist.
func openStorage(loc string) (fsadapter.FSCloser, string, error) {
	if strings.EqualFold(filepath.Ext(loc), ".zip") {
		fs, err := fsadapter.New(loc)
		return fs, "", err
	}
	if err := os.MkdirAll(loc, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create the data directory: %w", err)
	}
	fs, err := fsadapter.New(loc)
	return fs, loc, err
}

// loadSecrets load secrets from the files in secrets slice.
func loadSecrets(files []string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// parseCmdLine parses the command line arguments.
func parseCmdLine(args []string) (params, error) {
	fs := flag.NewFlagSet("openroute-mcp", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(
			fs.Output(),
			"openroute-mcp %s\n"+
				"MCP server exposing OpenRouteService geocoding, routing, POI and\n"+
				"isochrone APIs as tools for AI agents.\n\n"+
				"Usage:  %s [flags]\n\n"+
				"By default the server talks MCP over stdin/stdout.  Pass -http to\n"+
				"serve the Streamable HTTP transport instead.\n\n",
			build, filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	var p params
	fs.StringVar(&p.apiURL, "api", osenv.Value("OPENROUTESERVICE_URL", ors.DefBaseURL), "OpenRouteService `base_url` (environment: OPENROUTESERVICE_URL)")
	fs.StringVar(&p.apiKey, "api-key", osenv.Secret(apiKeyEnv, ""), "OpenRouteService `API_key` (environment: "+apiKeyEnv+")")
	fs.StringVar(&p.apiConfig, "api-config", "", "rate limit configuration `file` in YAML format (optional)")

	fs.StringVar(&p.dataDir, "data-dir", defDataDir, "`location` to save generated routes to: a directory, or a file\nwith the .zip extension")
	fs.BoolVar(&p.noSave, "no-save", false, "do not save generated routes")
	fs.BoolVar(&p.noImg, "no-img", false, "do not render PNG map previews for saved routes")
	fs.BoolVar(&p.addHTML, "add-html", false, "render an interactive HTML map for each saved route")

	fs.BoolVar(&p.useHTTP, "http", false, "serve the Streamable HTTP transport instead of stdio")
	fs.StringVar(&p.host, "host", defHost, "`host` to bind the HTTP transport to")
	fs.IntVar(&p.port, "port", defPort, "`port` to bind the HTTP transport to")

	// main parameters
	fs.StringVar(&p.logFile, "log", os.Getenv("LOG_FILE"), "log `file` (optional)")
	fs.StringVar(&p.traceFile, "trace", os.Getenv("TRACE_FILE"), "trace `file` (optional)")
	fs.BoolVar(&p.printVersion, "V", false, "print version and exit")
	fs.BoolVar(&p.verbose, "v", false, "verbose messages")

	os.Unsetenv(apiKeyEnv)

	if err := fs.Parse(args); err != nil {
		return p, err
	}
	return p, p.validate()
}

func (p *params) validate() error {
	if p.printVersion {
		return nil
	}
	if p.port < 1 || p.port > 65535 {
		return fmt.Errorf("invalid port: %d", p.port)
	}
	if p.apiKey == "" {
		return errors.New("no API key: set the " + apiKeyEnv + " environment variable or use the -api-key flag")
	}
	return nil
}
