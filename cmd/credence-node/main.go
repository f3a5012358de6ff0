// Command credence-node runs the custody core as an HTTP service:
// bond lifecycle, governance-gated slashing and the emergency channel
// behind a small JSON API.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/auth"
	"github.com/credence-labs/credence-core/pkg/bond"
	"github.com/credence-labs/credence-core/pkg/config"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/emergency"
	"github.com/credence-labs/credence-core/pkg/evidence"
	"github.com/credence-labs/credence-core/pkg/governance"
	"github.com/credence-labs/credence-core/pkg/observability"
	"github.com/credence-labs/credence-core/pkg/registry"
	"github.com/credence-labs/credence-core/pkg/store"
	"github.com/credence-labs/credence-core/pkg/token"
	"github.com/credence-labs/credence-core/pkg/treasury"
)

type node struct {
	bonds     *bond.Engine
	gov       *governance.Engine
	emergency *emergency.Module
	evidence  *evidence.Store
	roles     *auth.Registry
	tokens    *auth.TokenManager
	snapshots *store.SQLiteBondStore
	records   *store.PostgresRecordStore
	obs       *observability.Provider
	logger    *slog.Logger
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, cleanup, err := buildNode(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer cleanup()

	mux := http.NewServeMux()
	n.routes(mux)

	limiter := auth.NewRateLimiter(50, 100)
	handler := auth.RequestID(limiter.Middleware(mux))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port, "profile", cfg.Profile)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildNode(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*node, func(), error) {
	auditLog := audit.NewLogger()

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName: "credence-core",
		Environment: "production",
		Enabled:     os.Getenv("OTEL_ENABLED") == "true",
		Insecure:    true,
	})
	if err != nil {
		return nil, nil, err
	}

	bondCfg := bond.DefaultConfig()
	govCfg := governance.Config{Admin: cfg.AdminAddr}
	if profile, err := config.LoadProfile(cfg.ProfilesDir, cfg.Profile); err == nil {
		bondCfg.MinBondAmount = profile.Bond.MinAmount
		bondCfg.MaxBondAmount = profile.Bond.MaxAmount
		bondCfg.MaxBondDuration = profile.Bond.MaxDuration()
		bondCfg.CreationFeeBps = profile.Bond.CreationFeeBps
		bondCfg.EarlyExitPenaltyBps = profile.Bond.EarlyExitPenaltyBps
		if profile.Bond.CustodyAccount != "" {
			bondCfg.CustodyAccount = profile.Bond.CustodyAccount
		}
		govCfg.QuorumBps = profile.Governance.QuorumBps
		govCfg.MinGovernors = profile.Governance.MinGovernors
	} else {
		logger.Warn("profile not loaded, using defaults", "error", err)
	}
	bondCfg.Admin = cfg.AdminAddr

	tok := token.NewInMemory()
	treas := treasury.NewAdapter("treasury", tok)
	bonds := bond.NewEngine(bondCfg, tok, treas, registry.Nop{}, auditLog)
	gov := governance.NewEngine(govCfg, bonds, auditLog)
	em := emergency.NewModule(cfg.AdminAddr, bondCfg.CustodyAccount, bonds, tok, auditLog)
	ev := evidence.NewStore(auditLog)

	roles := auth.NewRegistry(auditLog)
	if cfg.AdminAddr != "" {
		roles.Grant(cfg.AdminAddr, auth.RoleAdmin)
	}

	var tokens *auth.TokenManager
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokenManager([]byte(cfg.JWTSecret), "", 0)
	}

	sqliteDB, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	snapshots, err := store.NewSQLiteBondStore(sqliteDB)
	if err != nil {
		_ = sqliteDB.Close()
		return nil, nil, err
	}

	var records *store.PostgresRecordStore
	var pgDB *sql.DB
	if cfg.DatabaseURL != "" {
		pgDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			_ = sqliteDB.Close()
			return nil, nil, err
		}
		records = store.NewPostgresRecordStore(pgDB)
		if err := records.Init(ctx); err != nil {
			_ = pgDB.Close()
			_ = sqliteDB.Close()
			return nil, nil, err
		}
	}

	cleanup := func() {
		if pgDB != nil {
			_ = pgDB.Close()
		}
		_ = sqliteDB.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}

	return &node{
		bonds:     bonds,
		gov:       gov,
		emergency: em,
		evidence:  ev,
		roles:     roles,
		tokens:    tokens,
		snapshots: snapshots,
		records:   records,
		obs:       obs,
		logger:    logger,
	}, cleanup, nil
}

func (n *node) routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/auth/token", n.handleIssueToken)
	mux.HandleFunc("/api/governors", n.authenticated(n.handleAddGovernor))
	mux.HandleFunc("/api/bonds", n.authenticated(n.handleCreateBond))
	mux.HandleFunc("/api/bonds/", n.authenticated(n.handleBond))
	mux.HandleFunc("/api/proposals", n.authenticated(n.handleProposeSlash))
	mux.HandleFunc("/api/proposals/", n.authenticated(n.handleProposal))
	mux.HandleFunc("/api/evidence", n.authenticated(n.handleSubmitEvidence))
	mux.HandleFunc("/api/evidence/", n.authenticated(n.handleGetEvidence))
	mux.HandleFunc("/api/emergency/withdraw", n.authenticated(n.handleEmergencyWithdraw))
}

// authenticated requires a valid bearer token when token auth is
// configured. With no JWT secret the node runs open, for local use.
func (n *node) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if n.tokens != nil {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if _, err := n.tokens.Validate(raw); err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
		}
		next(w, r)
	}
}

// handleIssueToken mints a bearer token for an address. Only the admin
// may issue tokens.
func (n *node) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if n.tokens == nil {
		http.Error(w, "token auth not configured", http.StatusNotImplemented)
		return
	}
	var req struct {
		Caller  string      `json:"caller"`
		Address string      `json:"address"`
		Roles   []auth.Role `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := n.roles.RequireAdmin(r.Context(), req.Caller); err != nil {
		n.obs.RecordDenial(r.Context(), string(auth.RoleAdmin))
		n.writeError(w, r, err)
		return
	}
	signed, err := n.tokens.Issue(req.Address, req.Roles)
	if err != nil {
		n.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": signed})
}

// handleAddGovernor seats a governor: the engine gets the weight, the
// role registry the grant that node-level checks consult.
func (n *node) handleAddGovernor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Caller  string `json:"caller"`
		Address string `json:"address"`
		Weight  int64  `json:"weight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := n.gov.AddGovernor(r.Context(), req.Caller, req.Address, req.Weight); err != nil {
		n.writeError(w, r, err)
		return
	}
	n.roles.Grant(req.Address, auth.RoleGovernor)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"address": req.Address,
		"weight":  req.Weight,
	})
}

func (n *node) handleCreateBond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Caller          string `json:"caller"`
		Identity        string `json:"identity"`
		Amount          int64  `json:"amount"`
		DurationSeconds int64  `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := n.bonds.CreateBond(r.Context(), req.Caller, req.Identity, req.Amount, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		n.writeError(w, r, err)
		return
	}
	n.obs.RecordBondCreated(r.Context(), b.BondedAmount)
	n.snapshot(r.Context(), b.Identity)
	writeJSON(w, http.StatusCreated, b)
}

// handleBond dispatches /api/bonds/{identity}, {identity}/topup and
// {identity}/withdraw.
func (n *node) handleBond(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/bonds/")
	parts := strings.Split(rest, "/")
	identity := parts[0]
	if identity == "" {
		http.Error(w, "missing identity", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		b, err := n.bonds.Bond(identity)
		if err != nil {
			n.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, b)

	case len(parts) == 2 && parts[1] == "topup" && r.Method == http.MethodPost:
		n.handleTopUp(w, r, identity)

	case len(parts) == 2 && parts[1] == "withdraw" && r.Method == http.MethodPost:
		n.handleWithdraw(w, r, identity)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (n *node) handleTopUp(w http.ResponseWriter, r *http.Request, identity string) {
	var req struct {
		Caller string `json:"caller"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := n.roles.RequireOwner(r.Context(), req.Caller, identity); err != nil {
		n.obs.RecordDenial(r.Context(), string(auth.RoleIdentity))
		n.writeError(w, r, err)
		return
	}
	b, err := n.bonds.TopUp(r.Context(), req.Caller, req.Amount)
	if err != nil {
		n.writeError(w, r, err)
		return
	}
	n.snapshot(r.Context(), b.Identity)
	writeJSON(w, http.StatusOK, b)
}

// handleWithdraw runs a partial withdrawal when an amount is given and
// a full matured exit otherwise.
func (n *node) handleWithdraw(w http.ResponseWriter, r *http.Request, identity string) {
	var req struct {
		Caller string `json:"caller"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := n.roles.RequireOwner(r.Context(), req.Caller, identity); err != nil {
		n.obs.RecordDenial(r.Context(), string(auth.RoleIdentity))
		n.writeError(w, r, err)
		return
	}

	if req.Amount > 0 {
		b, err := n.bonds.Withdraw(r.Context(), req.Caller, req.Amount)
		if err != nil {
			n.writeError(w, r, err)
			return
		}
		n.obs.RecordWithdrawal(r.Context(), req.Amount)
		n.snapshot(r.Context(), identity)
		writeJSON(w, http.StatusOK, b)
		return
	}

	payout, err := n.bonds.WithdrawBond(r.Context(), req.Caller)
	if err != nil {
		n.writeError(w, r, err)
		return
	}
	n.obs.RecordWithdrawal(r.Context(), payout)
	n.snapshot(r.Context(), identity)
	writeJSON(w, http.StatusOK, map[string]int64{"payout": payout})
}

func (n *node) handleProposeSlash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Proposer    string   `json:"proposer"`
		Identity    string   `json:"identity"`
		Amount      int64    `json:"amount"`
		Reason      string   `json:"reason"`
		EvidenceIDs []uint64 `json:"evidence_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := n.roles.RequireGovernor(r.Context(), req.Proposer); err != nil {
		n.obs.RecordDenial(r.Context(), string(auth.RoleGovernor))
		n.writeError(w, r, err)
		return
	}
	p, err := n.gov.ProposeSlash(r.Context(), req.Proposer, req.Identity, req.Amount, req.Reason, req.EvidenceIDs)
	if err != nil {
		n.writeError(w, r, err)
		return
	}
	n.obs.RecordProposalCreated(r.Context())
	writeJSON(w, http.StatusCreated, p)
}

// handleProposal dispatches /api/proposals/{id}, {id}/votes and
// {id}/execute.
func (n *node) handleProposal(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/proposals/")
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		p, err := n.gov.Proposal(id)
		if err != nil {
			n.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case len(parts) == 2 && parts[1] == "votes" && r.Method == http.MethodPost:
		var req struct {
			Voter   string `json:"voter"`
			Approve bool   `json:"approve"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, err := n.gov.Vote(r.Context(), id, req.Voter, req.Approve)
		if err != nil {
			n.writeError(w, r, err)
			return
		}
		n.obs.RecordVote(r.Context(), req.Approve)
		writeJSON(w, http.StatusOK, p)

	case len(parts) == 2 && parts[1] == "execute" && r.Method == http.MethodPost:
		var req struct {
			Executor string `json:"executor"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, err := n.gov.ExecuteSlashProposal(r.Context(), req.Executor, id)
		if err != nil {
			n.writeError(w, r, err)
			return
		}
		n.obs.RecordSlashExecuted(r.Context())
		n.snapshot(r.Context(), b.Identity)
		writeJSON(w, http.StatusOK, b)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (n *node) handleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Submitter   string             `json:"submitter"`
		ProposalID  uint64             `json:"proposal_id"`
		Hash        string             `json:"hash"`
		HashType    contracts.HashType `json:"hash_type"`
		Description string             `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	record, err := n.evidence.Submit(r.Context(), req.Submitter, req.ProposalID, req.Hash, req.HashType, req.Description)
	if err != nil {
		n.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (n *node) handleGetEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(strings.TrimPrefix(r.URL.Path, "/api/evidence/"), 10, 64)
	if err != nil {
		http.Error(w, "invalid evidence id", http.StatusBadRequest)
		return
	}
	record, err := n.evidence.Get(id)
	if err != nil {
		n.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (n *node) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Admin      string `json:"admin"`
		Governance string `json:"governance"`
		Identity   string `json:"identity"`
		Amount     int64  `json:"amount"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	record, err := n.emergency.Withdraw(r.Context(), req.Admin, req.Governance, req.Identity, req.Amount, req.Reason)
	if err != nil {
		n.writeError(w, r, err)
		return
	}
	n.obs.RecordEmergencyWithdrawal(r.Context(), record.GrossAmount)
	if n.records != nil {
		if err := n.records.Append(r.Context(), record); err != nil {
			n.logger.Warn("record not persisted", "id", record.ID, "error", err)
		}
	}
	n.snapshot(r.Context(), req.Identity)
	writeJSON(w, http.StatusOK, record)
}

// snapshot writes the bond's current state to the sqlite store. Every
// mutating handler calls it so the snapshot never trails the ledger.
func (n *node) snapshot(ctx context.Context, identity string) {
	b, err := n.bonds.Bond(identity)
	if err != nil {
		return
	}
	if err := n.snapshots.Save(ctx, b); err != nil {
		n.logger.Warn("snapshot not saved", "identity", identity, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses and tags the
// body with the request id for log correlation.
func (n *node) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch contracts.KindOf(err) {
	case contracts.KindValidation:
		status = http.StatusBadRequest
	case contracts.KindAuthorization:
		status = http.StatusForbidden
	case contracts.KindState:
		status = http.StatusConflict
	case contracts.KindInvariant:
		status = http.StatusUnprocessableEntity
	case contracts.KindReentrancy:
		status = http.StatusLocked
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"kind":       string(contracts.KindOf(err)),
		"request_id": auth.RequestIDFrom(r.Context()),
	})
}
