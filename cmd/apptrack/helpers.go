package main

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apptrack/internal/classify"
	"apptrack/internal/config"
	"apptrack/internal/extract"
	"apptrack/internal/ledger"
	"apptrack/internal/llm"
	"apptrack/internal/mail"
	"apptrack/internal/pipeline"
	"apptrack/internal/resilience"
	"apptrack/internal/secrets"
	"apptrack/internal/sheet"
)

func openLedger() (*sql.DB, *ledger.Store, error) {
	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, nil, err
	}
	return db, ledger.NewStore(db), nil
}

func selector() mail.Selector {
	if cfg.Fetch.Mode == "count" {
		return mail.Selector{Count: cfg.Fetch.Count}
	}
	return mail.Selector{Days: cfg.Fetch.Days}
}

// combined concatenates the config-file and rules-file lists; both are
// extras layered on the classifier's built-ins.
func combined(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// buildOrchestrator connects the mailbox, ledger, sheet, classifier, and
// extractor into a ready-to-run pipeline. The returned cleanup closes
// the IMAP session and the ledger database.
func buildOrchestrator(ctx context.Context) (*pipeline.Orchestrator, func(), error) {
	rules, err := config.LoadRules(cfg.Classify.RulesPath)
	if err != nil {
		return nil, nil, err
	}

	var client llm.Client
	if cfg.Anthropic.Key != "" {
		client = llm.NewClient(cfg.Anthropic.Key, cfg.Anthropic.Model, cfg.Anthropic.RequestsPerMin, cfg.Anthropic.Timeout)
	}

	var second classify.SecondOpinion
	if cfg.Classify.AISecondOpinion {
		if client == nil {
			return nil, nil, eris.New("ai_second_opinion enabled but anthropic.key is not set")
		}
		second = llm.NewOpinion(client)
	}

	classifier := classify.New(classify.Ruleset{
		ATSDomains:       combined(cfg.Classify.ATSDomains, rules.ATSDomains),
		PositiveKeywords: combined(cfg.Classify.PositiveKeywords, rules.PositiveKeywords),
		NegativeKeywords: combined(cfg.Classify.NegativeKeywords, rules.NegativeKeywords),
	}, second)

	registry, err := extract.NewRegistry(rules.Templates)
	if err != nil {
		return nil, nil, err
	}
	var ai *extract.AIExtractor
	if client != nil {
		ai = extract.NewAIExtractor(client)
	} else {
		zap.L().Info("anthropic.key not set, AI fallback disabled")
	}
	extractor := extract.New(registry, ai, cfg.Pipeline.AIDefaultConfidence)

	db, store, err := openLedger()
	if err != nil {
		return nil, nil, err
	}

	password, err := secrets.GetIMAPPassword(secrets.IMAPAccount(cfg.IMAP))
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	mailClient, err := mail.Dial(ctx, cfg.IMAP, password)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		mailClient.Close()
		if err := db.Close(); err != nil {
			zap.L().Warn("close ledger db", zap.Error(err))
		}
	}

	o := &pipeline.Orchestrator{
		Source:     mailClient,
		Sheet:      sheet.NewWriter(cfg.Sheet.Path, cfg.Sheet.SheetName),
		Ledger:     store,
		Classifier: classifier,
		Extractor:  extractor,
		AcquireLock: func() (func() error, error) {
			l, err := ledger.Acquire(cfg.Ledger.LockPath)
			if err != nil {
				return nil, err
			}
			return l.Release, nil
		},
		Selector:  selector(),
		Threshold: cfg.Pipeline.ConfidenceThreshold,
		Retry:     resilience.DefaultRetryConfig(),
	}
	return o, cleanup, nil
}
