// gatectl is the control CLI for the nekogate gate daemon.
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"nekogate/internal/clock"
	"nekogate/internal/config"
	"nekogate/internal/gatekey"
	"nekogate/internal/health"
	"nekogate/internal/keyderivation"
	"nekogate/internal/logging"
	"nekogate/internal/schema"
	"nekogate/internal/store"
	"nekogate/internal/tpmseal"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "unknown"
)

var (
	configPath  = flag.String("config", "", "path to config file")
	noColor     = flag.Bool("no-color", false, "disable colored output")
	showVersion = flag.Bool("version", false, "show version information")
	quiet       = flag.Bool("q", false, "suppress banner")
)

// ANSI color codes
type colors struct {
	Reset  string
	Bold   string
	Dim    string
	Red    string
	Green  string
	Yellow string
	Blue   string
	Cyan   string
	White  string
}

var c colors

func initColors() {
	if *noColor || os.Getenv("NO_COLOR") != "" || !isTerminal() {
		c = colors{}
		return
	}

	c = colors{
		Reset:  "\033[0m",
		Bold:   "\033[1m",
		Dim:    "\033[2m",
		Red:    "\033[31m",
		Green:  "\033[32m",
		Yellow: "\033[33m",
		Blue:   "\033[34m",
		Cyan:   "\033[36m",
		White:  "\033[37m",
	}
}

func isTerminal() bool {
	if runtime.GOOS == "windows" {
		return os.Getenv("TERM") != "" || os.Getenv("WT_SESSION") != ""
	}
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

const banner = `
%s          ┌┐┌┌─┐┬┌─┌─┐┌─┐┌─┐┌┬┐┌─┐%s
%s          │││├┤ ├┴┐│ ││ ┬├─┤ │ ├┤ %s
%s          ┘└┘└─┘┴ ┴└─┘└─┘┴ ┴ ┴ └─┘%s%sctl%s
%s    ────────────────────────────────%s
%s       KeeLoq door-access codec%s

`

func printBanner() {
	fmt.Fprintf(os.Stderr, banner,
		c.Cyan+c.Bold, c.Reset,
		c.Cyan+c.Bold, c.Reset,
		c.Cyan+c.Bold, c.Reset, c.Dim, c.Reset,
		c.Dim, c.Reset,
		c.Dim, c.Reset,
	)
}

func printVersion() {
	fmt.Printf("%sgatectl%s %s%s%s\n", c.Bold, c.Reset, c.Cyan, Version, c.Reset)
	fmt.Printf("  %sBuild%s     %s\n", c.Dim, c.Reset, BuildTime)
	fmt.Printf("  %sCommit%s    %s\n", c.Dim, c.Reset, Commit)
	fmt.Printf("  %sPlatform%s  %s/%s\n", c.Dim, c.Reset, runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  %sGo%s        %s\n", c.Dim, c.Reset, runtime.Version())
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s ERROR %s %s\n", c.Bold, c.Red, c.Reset, msg)
}

func printSection(title string) {
	fmt.Printf("\n%s%s %s %s\n\n", c.Bold, c.Cyan, title, c.Reset)
}

func usage() {
	fmt.Fprintf(os.Stderr, `%sUSAGE%s
    gatectl [options] <command> [arguments]

%sCOMMANDS%s
    %sgenerate%s <admin_key> <variant> [params...]
                        Generate a password. variant is one of:
                          temporary
                          times <n>
                          limited <hours> <minutes>
                          period <year> <month> <day> <hour>
    %sverify%s   <admin_key> <password_text>
                        Decode and verify a password text.
    %sremaining%s <admin_key> <password_text>
                        Print only the remaining validity duration.
    %sserve%s             Run the health/generate/verify endpoints and
                        config watcher.
    %saudit-tail%s        Tail the audit log.
    %shelp%s              Show this help message.
    %sversion%s           Show version information.

%sOPTIONS%s
    -config <path>   Path to config file (default: ~/.nekogate/config.toml)
    -no-color        Disable colored output
    -q               Suppress banner

%sEXAMPLES%s
    gatectl generate 13579 temporary
    gatectl generate 13579 times 5
    gatectl verify 13579 5123456789
    gatectl serve

`,
		c.Bold+c.White, c.Reset,
		c.Bold+c.White, c.Reset,
		c.Cyan, c.Reset,
		c.Cyan, c.Reset,
		c.Cyan, c.Reset,
		c.Cyan, c.Reset,
		c.Cyan, c.Reset,
		c.Cyan, c.Reset,
		c.Cyan, c.Reset,
		c.Bold+c.White, c.Reset,
		c.Bold+c.White, c.Reset,
	)
}

func main() {
	flag.Parse()
	initColors()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		if !*quiet {
			printBanner()
		}
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)

	if !*quiet && cmd != "help" && cmd != "version" {
		printBanner()
	}

	switch cmd {
	case "generate":
		cmdGenerate(flag.Args()[1:])
	case "verify":
		cmdVerify(flag.Args()[1:])
	case "remaining":
		cmdRemaining(flag.Args()[1:])
	case "serve":
		cmdServe()
	case "audit-tail":
		cmdAuditTail()
	case "help":
		if !*quiet {
			printBanner()
		}
		usage()
	case "version":
		printVersion()
	default:
		printError(fmt.Sprintf("Unknown command: %s", cmd))
		usage()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		printError(fmt.Sprintf("loading config: %v", err))
		os.Exit(1)
	}
	return cfg
}

func parseRequest(variant string, params []string) (gatekey.Request, error) {
	switch variant {
	case "temporary":
		return gatekey.Request{Kind: gatekey.KindTemporary}, nil

	case "times":
		if len(params) < 1 {
			return gatekey.Request{}, fmt.Errorf("times requires <n>")
		}
		n, err := strconv.Atoi(params[0])
		if err != nil {
			return gatekey.Request{}, fmt.Errorf("invalid n: %w", err)
		}
		return gatekey.Request{Kind: gatekey.KindTimes, N: n}, nil

	case "limited":
		if len(params) < 2 {
			return gatekey.Request{}, fmt.Errorf("limited requires <hours> <minutes>")
		}
		hours, err := strconv.Atoi(params[0])
		if err != nil {
			return gatekey.Request{}, fmt.Errorf("invalid hours: %w", err)
		}
		minutes, err := strconv.Atoi(params[1])
		if err != nil {
			return gatekey.Request{}, fmt.Errorf("invalid minutes: %w", err)
		}
		return gatekey.Request{Kind: gatekey.KindLimited, Hours: hours, Minutes: minutes}, nil

	case "period":
		if len(params) < 4 {
			return gatekey.Request{}, fmt.Errorf("period requires <year> <month> <day> <hour>")
		}
		ints := make([]int, 4)
		for i, p := range params[:4] {
			v, err := strconv.Atoi(p)
			if err != nil {
				return gatekey.Request{}, fmt.Errorf("invalid period component %q: %w", p, err)
			}
			ints[i] = v
		}
		return gatekey.Request{Kind: gatekey.KindPeriod, Year: ints[0], Month: ints[1], Day: ints[2], Hour: ints[3]}, nil

	default:
		return gatekey.Request{}, fmt.Errorf("unknown variant %q", variant)
	}
}

func cmdGenerate(args []string) {
	if len(args) < 2 {
		printError("Usage: gatectl generate <admin_key> <variant> [params...]")
		os.Exit(1)
	}
	adminKey, variant := args[0], args[1]

	req, err := parseRequest(variant, args[2:])
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	record, err := gatekey.Generate(adminKey, req, clock.System{})
	if err != nil {
		printError(fmt.Sprintf("generate: %v", err))
		os.Exit(1)
	}

	printSection("PASSWORD")
	fmt.Printf("  %sText%s       %s%s%s\n", c.Dim, c.Reset, c.Bold, record.Text, c.Reset)
	fmt.Printf("  %sVariant%s    %s\n", c.Dim, c.Reset, variant)
	fmt.Printf("  %sExpires%s    %s\n", c.Dim, c.Reset, clock.Format(record.ExpiresAt))
}

func cmdVerify(args []string) {
	if len(args) < 2 {
		printError("Usage: gatectl verify <admin_key> <password_text>")
		os.Exit(1)
	}
	adminKey, text := args[0], args[1]

	result, ok, err := gatekey.Verify(text, adminKey, clock.System{})
	if err != nil {
		printError(fmt.Sprintf("verify: %v", err))
		os.Exit(1)
	}
	if !ok {
		fmt.Printf("%s%s NOT VALID %s\n", c.Bold, c.Red, c.Reset)
		os.Exit(1)
	}

	printSection("VALID")
	fmt.Printf("  %sVariant%s     %s\n", c.Dim, c.Reset, result.Request.Kind)
	fmt.Printf("  %sRemaining%s   %s\n", c.Dim, c.Reset, result.Remaining.Round(time.Second))
}

func cmdRemaining(args []string) {
	if len(args) < 2 {
		printError("Usage: gatectl remaining <admin_key> <password_text>")
		os.Exit(1)
	}
	adminKey, text := args[0], args[1]

	remaining, ok, err := gatekey.RemainingTime(text, adminKey, clock.System{})
	if err != nil {
		printError(fmt.Sprintf("remaining: %v", err))
		os.Exit(1)
	}
	if !ok {
		fmt.Printf("%s%s NOT VALID %s\n", c.Bold, c.Red, c.Reset)
		os.Exit(1)
	}

	fmt.Println(remaining.Round(time.Second))
}

func cmdServe() {
	crashHandler := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		Component: "gatectl-serve",
		Version:   Version,
	})
	logging.SetDefaultCrashHandler(crashHandler)

	crashHandler.RecoverWithContext(map[string]interface{}{"command": "serve"}, runServe)
}

func runServe() {
	crashHandler := logging.DefaultCrashHandler()

	cfg := loadConfig()
	if err := cfg.EnsureDirectories(); err != nil {
		printError(fmt.Sprintf("create directories: %v", err))
		os.Exit(1)
	}

	sealer, err := tpmseal.Select(cfg.TPMSealEnabled, config.NekogateDir())
	if err != nil {
		printError(fmt.Sprintf("init seal: %v", err))
		os.Exit(1)
	}
	defer sealer.Close()

	sealedKeyPath := filepath.Join(config.NekogateDir(), "adminkey.sealed")
	if cfg.AdminKey == "" {
		if blob, err := os.ReadFile(sealedKeyPath); err == nil {
			if plain, err := sealer.Unseal(blob); err == nil {
				cfg.AdminKey = string(plain)
			} else {
				logging.Warn("failed to unseal backed-up admin key", "error", err)
			}
		}
	} else {
		if blob, err := sealer.Seal([]byte(cfg.AdminKey)); err == nil {
			os.WriteFile(sealedKeyPath, blob, 0600)
		}
	}

	if err := cfg.Validate(); err != nil {
		printError(fmt.Sprintf("invalid config: %v", err))
		os.Exit(1)
	}

	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logLevel = logging.LevelInfo
	}
	logger, err := logging.New(&logging.Config{
		Output:   "file",
		FilePath: cfg.Logging.Path,
		Level:    logLevel,
		Format:   logging.FormatJSON,
	})
	if err != nil {
		printError(fmt.Sprintf("init logging: %v", err))
		os.Exit(1)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	audit, err := logging.NewAuditLogger(&logging.AuditLoggerConfig{
		FilePath:   cfg.AuditLogPath,
		MaxSize:    50,
		MaxAge:     90,
		MaxBackups: 10,
		Compress:   true,
	})
	if err != nil {
		printError(fmt.Sprintf("init audit log: %v", err))
		os.Exit(1)
	}
	defer audit.Close()

	fieldKey, err := loadOrCreateFieldKey(sealer, filepath.Join(config.NekogateDir(), "fieldkey.sealed"))
	if err != nil {
		printError(fmt.Sprintf("init field key: %v", err))
		os.Exit(1)
	}

	db, err := store.OpenSealed(cfg.DatabasePath, fieldKey)
	if err != nil {
		printError(fmt.Sprintf("open store: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	sentry := health.NewSentry()
	sentry.RegisterFunc("clock", true, func(ctx context.Context) health.PostResult {
		return health.ClockCheck(func() time.Time { return clock.System{}.Now() })(ctx)
	})
	sentry.RegisterFunc("store", true, func(ctx context.Context) health.PostResult {
		return health.StoreCheck(db.Ping)(ctx)
	})
	sentry.RegisterFunc("seal", false, func(ctx context.Context) health.PostResult {
		return health.SealCheck(sealer.Available)(ctx)
	})
	sentry.SetReady(true)

	mux := http.NewServeMux()
	mux.Handle("/healthz", sentry.PulseHandler())
	mux.Handle("/readyz", sentry.ReadyHandler())
	mux.Handle("/health", sentry.ReportHandler())
	mux.HandleFunc("/api/generate", handleGenerate(cfg, audit, db))
	mux.HandleFunc("/api/verify", handleVerify(cfg, audit, db))

	loader := config.NewLoader(*configPath)
	if _, err := loader.Load(); err == nil {
		if err := loader.Watch(); err != nil {
			logging.Warn("config watch failed", "error", err)
		}
	}
	defer loader.Close()

	srv := &http.Server{Addr: ":8090", Handler: mux}
	go func() {
		defer crashHandler.RecoverGoroutine()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			printError(fmt.Sprintf("health server: %v", err))
		}
	}()

	audit.LogStartup(context.Background(), Version)
	printSection("SERVING")
	fmt.Printf("  %sHealth%s    http://localhost:8090/health\n", c.Dim, c.Reset)
	fmt.Printf("  %sGenerate%s  http://localhost:8090/api/generate\n", c.Dim, c.Reset)
	fmt.Printf("  %sVerify%s    http://localhost:8090/api/verify\n", c.Dim, c.Reset)
	fmt.Printf("  %sDatabase%s  %s\n", c.Dim, c.Reset, cfg.DatabasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	audit.LogShutdown(context.Background(), "signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

// loadOrCreateFieldKey recovers the SQLite store's field-encryption key
// from its sealed backup, or generates and seals a new one on first run.
func loadOrCreateFieldKey(sealer tpmseal.Sealer, sealedPath string) ([]byte, error) {
	if blob, err := os.ReadFile(sealedPath); err == nil {
		key, err := sealer.Unseal(blob)
		if err != nil {
			return nil, fmt.Errorf("unseal field key: %w", err)
		}
		return key, nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate field key: %w", err)
	}

	blob, err := sealer.Seal(key)
	if err != nil {
		return nil, fmt.Errorf("seal field key: %w", err)
	}
	if err := os.WriteFile(sealedPath, blob, 0600); err != nil {
		return nil, fmt.Errorf("write sealed field key: %w", err)
	}
	return key, nil
}

// generateEnvelope is the JSON shape a workflow collaborator (e.g. the
// out-of-scope Telegram bot) sends to request a password, validated
// against schema's generate-request-v1 schema before any field is read.
type generateEnvelope struct {
	Variant string `json:"variant"`
	Params  struct {
		N       int `json:"n"`
		Hours   int `json:"hours"`
		Minutes int `json:"minutes"`
		Year    int `json:"year"`
		Month   int `json:"month"`
		Day     int `json:"day"`
		Hour    int `json:"hour"`
	} `json:"params"`
	VisitorID string `json:"visitor_id"`
	InviterID string `json:"inviter_id"`
}

// verifyEnvelope is the JSON shape of a verify request.
type verifyEnvelope struct {
	Text string `json:"text"`
}

// responseEnvelope is the JSON shape of both a generate and a verify
// response, validated against schema's response-v1 schema before it goes
// out on the wire.
type responseEnvelope struct {
	OK        bool   `json:"ok"`
	Text      string `json:"text,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Variant   string `json:"variant,omitempty"`
	Error     string `json:"error,omitempty"`
}

func requestFromEnvelope(env generateEnvelope) (gatekey.Request, error) {
	switch env.Variant {
	case "temporary":
		return gatekey.Request{Kind: gatekey.KindTemporary}, nil
	case "times":
		return gatekey.Request{Kind: gatekey.KindTimes, N: env.Params.N}, nil
	case "limited":
		return gatekey.Request{Kind: gatekey.KindLimited, Hours: env.Params.Hours, Minutes: env.Params.Minutes}, nil
	case "period":
		return gatekey.Request{
			Kind:  gatekey.KindPeriod,
			Year:  env.Params.Year,
			Month: env.Params.Month,
			Day:   env.Params.Day,
			Hour:  env.Params.Hour,
		}, nil
	default:
		return gatekey.Request{}, fmt.Errorf("unknown variant %q", env.Variant)
	}
}

// writeEnvelopeResponse validates resp against schema's response-v1 schema
// before writing it: a collaborator bug that produces a malformed response
// surfaces as a 500 here instead of an unvalidated payload on the wire.
func writeEnvelopeResponse(w http.ResponseWriter, status int, resp responseEnvelope) {
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, `{"ok":false,"error":"internal: marshal response"}`, http.StatusInternalServerError)
		return
	}
	if err := schema.ValidateResponse(body); err != nil {
		logging.Error("response failed schema validation", "error", err)
		http.Error(w, `{"ok":false,"error":"internal: invalid response shape"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// recordStore is the part of the record store the IPC handlers use; both
// *store.Store and *store.SealedStore satisfy it.
type recordStore interface {
	InsertRecord(r *store.PasswordRecord) (int64, error)
	GetRecordByText(text string) (*store.PasswordRecord, error)
	UpdateStatus(id int64, status store.Status) error
}

// handleGenerate serves the JSON IPC envelope described in SPEC_FULL
// section 4.9: validate the inbound envelope against the embedded schema,
// decode it into a gatekey.Request, generate the password, persist an
// operational record, and audit the event before replying.
func handleGenerate(cfg *config.Config, audit *logging.AuditLogger, db recordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeEnvelopeResponse(w, http.StatusBadRequest, responseEnvelope{Error: "read body"})
			return
		}
		if err := schema.ValidateGenerateRequest(body); err != nil {
			writeEnvelopeResponse(w, http.StatusBadRequest, responseEnvelope{Error: err.Error()})
			return
		}

		var env generateEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			writeEnvelopeResponse(w, http.StatusBadRequest, responseEnvelope{Error: "malformed json"})
			return
		}

		req, err := requestFromEnvelope(env)
		if err != nil {
			writeEnvelopeResponse(w, http.StatusBadRequest, responseEnvelope{Error: err.Error()})
			return
		}

		record, err := gatekey.Generate(cfg.AdminKey, req, clock.System{})
		if err != nil {
			audit.LogError(r.Context(), "generate", err)
			writeEnvelopeResponse(w, http.StatusUnprocessableEntity, responseEnvelope{Error: err.Error()})
			return
		}

		if key, err := keyderivation.Derive(cfg.AdminKey); err == nil {
			audit.LogPasswordGenerated(r.Context(), env.Variant, keyderivation.Fingerprint(key))
		}

		params, _ := json.Marshal(env.Params)
		if _, err := db.InsertRecord(&store.PasswordRecord{
			VisitorID:      env.VisitorID,
			InviterID:      env.InviterID,
			RequestVariant: env.Variant,
			Parameters:     string(params),
			EmittedText:    record.Text,
			StartTime:      clock.LocalEpochSeconds(time.Now()),
			EndTime:        clock.LocalEpochSeconds(record.ExpiresAt),
			Status:         store.StatusPending,
		}); err != nil {
			logging.Error("persist generated record", "error", err)
		}

		writeEnvelopeResponse(w, http.StatusOK, responseEnvelope{
			OK:        true,
			Text:      record.Text,
			ExpiresAt: record.ExpiresAt.Format(time.RFC3339),
			Variant:   env.Variant,
		})
	}
}

// handleVerify serves the verify half of the JSON IPC envelope. The verdict
// comes from gatekey.Verify alone; after a successful verify, a matching
// pending record is marked auth. The store is not consulted when deciding
// validity, so a code whose record is already auth or revoked still verifies.
func handleVerify(cfg *config.Config, audit *logging.AuditLogger, db recordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeEnvelopeResponse(w, http.StatusBadRequest, responseEnvelope{Error: "read body"})
			return
		}
		if err := schema.ValidateVerifyRequest(body); err != nil {
			writeEnvelopeResponse(w, http.StatusBadRequest, responseEnvelope{Error: err.Error()})
			return
		}

		var env verifyEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			writeEnvelopeResponse(w, http.StatusBadRequest, responseEnvelope{Error: "malformed json"})
			return
		}

		result, ok, err := gatekey.Verify(env.Text, cfg.AdminKey, clock.System{})
		if err != nil {
			audit.LogError(r.Context(), "verify", err)
			writeEnvelopeResponse(w, http.StatusBadRequest, responseEnvelope{Error: err.Error()})
			return
		}

		key, keyErr := keyderivation.Derive(cfg.AdminKey)
		if !ok {
			if keyErr == nil {
				audit.LogPasswordRejected(r.Context(), keyderivation.Fingerprint(key))
			}
			writeEnvelopeResponse(w, http.StatusOK, responseEnvelope{OK: false, Error: "not valid"})
			return
		}
		if keyErr == nil {
			audit.LogPasswordVerified(r.Context(), result.Request.Kind.String(), keyderivation.Fingerprint(key))
		}

		if rec, err := db.GetRecordByText(env.Text); err == nil && rec != nil && rec.Status == store.StatusPending {
			if err := db.UpdateStatus(rec.RecordID, store.StatusAuth); err != nil {
				logging.Error("update record status", "error", err)
			}
		}

		writeEnvelopeResponse(w, http.StatusOK, responseEnvelope{
			OK:      true,
			Variant: result.Request.Kind.String(),
		})
	}
}

func cmdAuditTail() {
	cfg := loadConfig()

	data, err := os.ReadFile(cfg.AuditLogPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("  %sNo audit events recorded yet.%s\n", c.Dim, c.Reset)
			return
		}
		printError(fmt.Sprintf("reading audit log: %v", err))
		os.Exit(1)
	}

	printSection("AUDIT LOG")
	os.Stdout.Write(data)
}
