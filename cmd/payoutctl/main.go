// Command payoutctl runs the batch jobs once and issues operator tokens, for ops use
// outside the HTTP API.
//
//	payoutctl token -user 1 -email ops@coachpay.app -role finance -ttl 8h
//	payoutctl payouts
//	payoutctl reconcile -days 14
//	payoutctl test-alert
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sjperalta/coachpay-api/internal/cache"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/database"
	"github.com/sjperalta/coachpay-api/internal/jobs"
	"github.com/sjperalta/coachpay-api/internal/paymentrail"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/internal/secure"
	"github.com/sjperalta/coachpay-api/internal/services"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: payoutctl <token|payouts|reconcile|test-alert> [flags]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Setup(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "token":
		issueToken(cfg, os.Args[2:])
	case "payouts":
		svcs, shutdown := buildServices(ctx, cfg)
		defer shutdown()
		summary, err := svcs.Job.RunPayouts(ctx, services.TriggerManual)
		printJSON(summary)
		if err != nil {
			log.Fatalf("Payout run failed: %v", err)
		}
	case "reconcile":
		fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
		days := fs.Int("days", 0, "lookback in days (policy default when 0)")
		_ = fs.Parse(os.Args[2:])

		svcs, shutdown := buildServices(ctx, cfg)
		defer shutdown()
		run, err := svcs.Job.RunReconciliation(ctx, *days)
		printJSON(run)
		if err != nil {
			log.Fatalf("Reconciliation failed: %v", err)
		}
	case "test-alert":
		if cfg.ResendAPIKey == "" || cfg.OpsEmail == "" {
			log.Fatal("RESEND_API_KEY and OPS_EMAIL must be set")
		}
		emailService := services.NewEmailService(cfg)
		if err := emailService.SendOpsAlert(ctx, "Test alert", []string{"payoutctl can reach the ops mailbox"}); err != nil {
			log.Fatalf("Failed to send ops alert: %v", err)
		}
		log.Printf("Ops alert sent to %s", cfg.OpsEmail)
	default:
		usage()
	}
}

func issueToken(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.Uint("user", 0, "operator user id")
	email := fs.String("email", "", "operator email")
	role := fs.String("role", services.RoleFinance, "admin or finance")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = fs.Parse(args)

	token, err := services.NewAuthService(cfg).IssueToken(*userID, *email, *role, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

// buildServices wires the same dependencies as the API server
func buildServices(ctx context.Context, cfg *config.Config) (*services.Services, func()) {
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to load payout policy: %v", err)
	}
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	cipher, err := secure.NewFieldCipher(cfg.BankDataKey)
	if err != nil {
		log.Fatalf("Failed to initialize bank data cipher: %v", err)
	}

	var rail paymentrail.Rail
	if cfg.RailConfigured() {
		rail = paymentrail.NewRazorpayRail(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayXAccount)
	}

	var summaryCache services.SummaryCache
	redis := cache.Connect(ctx, cfg.RedisAddr)
	if redis != nil {
		summaryCache = redis
	}

	worker := jobs.NewWorker(1)
	svcs := services.NewServices(services.Deps{
		Repos:  repository.NewRepositories(db),
		Worker: worker,
		Rail:   rail,
		Cipher: cipher,
		Cache:  summaryCache,
		Config: cfg,
		Policy: policy,
	})

	return svcs, func() {
		// lets queued confirmation emails and alerts go out
		worker.Shutdown()
		if redis != nil {
			_ = redis.Close()
		}
	}
}

func printJSON(v interface{}) {
	if v == nil {
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
