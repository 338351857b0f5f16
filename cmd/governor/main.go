package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/cartridge"
	"github.com/Mindburn-Labs/actiongov/pkg/competence"
	"github.com/Mindburn-Labs/actiongov/pkg/config"
	"github.com/Mindburn-Labs/actiongov/pkg/evidence"
	"github.com/Mindburn-Labs/actiongov/pkg/ledger"
	"github.com/Mindburn-Labs/actiongov/pkg/obslog"
	"github.com/Mindburn-Labs/actiongov/pkg/orchestrator"
	"github.com/Mindburn-Labs/actiongov/pkg/storage"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing; dispatches on the first argument the
// same way the console binary this was modeled on does.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		runServer(stdout)
		return 0
	}

	switch args[1] {
	case "server", "serve":
		runServer(stdout)
		return 0
	case "health":
		return runHealthCmd(stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, "actiongov governor v0.1.0")
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "actiongov governor - governance runtime for agentic actions")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  governor <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  server   Run the governor HTTP server (default)")
	fmt.Fprintln(w, "  health   Check server health")
	fmt.Fprintln(w, "  version  Show version information")
	fmt.Fprintln(w, "  help     Show this help")
}

func runHealthCmd(out, errOut io.Writer) int {
	resp, err := http.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(errOut, "health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(errOut, "health check failed: status %d\n", resp.StatusCode)
		return 1
	}
	fmt.Fprintln(out, "OK")
	return 0
}

func runServer(stdout io.Writer) {
	ctx := context.Background()
	logger := slog.Default()
	fmt.Fprintln(stdout, "actiongov governor starting...")

	cfg := config.Load()

	obs, err := obslog.New(ctx, obslog.DefaultConfig(), logger)
	if err != nil {
		logger.Error("failed to init observability provider", "error", err)
		os.Exit(1)
	}

	identities := storage.NewMemoryIdentityStore()
	seedDemoIdentity(ctx, identities)

	cartridges := cartridge.NewRegistry()
	cartridges.Register("demo", demoCartridge{})
	if err := cartridges.InitializeAll(ctx); err != nil {
		logger.Error("failed to initialize cartridges", "error", err)
		os.Exit(1)
	}

	audit := ledger.New(ledger.NewMemoryStorage(), cfg.AuditRedaction, cfg.CanonicalizationVer)

	evidenceStore, err := evidence.NewFileSystemStore("data/evidence")
	if err != nil {
		logger.Error("failed to init evidence store", "error", err)
		os.Exit(1)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Cartridges:        cartridges,
		Identities:        identities,
		Competence:        competence.NewMemoryStore(),
		Guardrails:        nil, // no distributed counters in the single-process default
		Envelopes:         storage.NewMemoryEnvelopeStore(),
		Approvals:         storage.NewMemoryApprovalStore(),
		Policies:          storage.NewMemoryPolicyStore(),
		Ledger:            audit,
		Evidence:          evidenceStore,
		Obs:               obs,
		Routing:           cfg.ApprovalRouting,
		RiskConfig:        cfg.RiskScoring,
		Competences:       competence.DefaultConfig(),
		ProposalRateLimit: cfg.ProposalRateLimit,
	})

	srv := &server{orch: orch, logger: logger}
	mux := newMux(srv)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("governor listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("governor shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

// seedDemoIdentity registers a baseline identity spec and principal so the
// demo cartridge has someone to propose actions on behalf of out of the box.
func seedDemoIdentity(ctx context.Context, store *storage.MemoryIdentityStore) {
	now := time.Now()
	perAction := 500.0

	_ = store.SavePrincipal(ctx, &types.Principal{
		ID:          "alice",
		Type:        types.PrincipalUser,
		DisplayName: "Alice Demo",
		Roles:       []string{"approver"},
		CreatedAt:   now,
	})

	_ = store.SaveSpec(ctx, &types.IdentitySpec{
		ID:          "spec-alice",
		PrincipalID: "alice",
		RiskTolerance: map[types.RiskCategory]types.ApprovalLevel{
			types.RiskNone:     types.ApprovalLevelNone,
			types.RiskLow:      types.ApprovalLevelNone,
			types.RiskMedium:   types.ApprovalLevelStandard,
			types.RiskHigh:     types.ApprovalLevelElevated,
			types.RiskCritical: types.ApprovalLevelMandatory,
		},
		SpendLimits: types.SpendLimits{PerAction: &perAction},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
