package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"asiste.org/internal/access"
	"asiste.org/internal/audit"
	"asiste.org/internal/obs"
	"asiste.org/internal/stream"
)

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// SubjectResolver maps an attendance record to the classroom and
// organization the capability check is scoped to.
type SubjectResolver interface {
	AttendanceSubject(ctx context.Context, recordID string) (access.Subject, error)
}

// API is the HTTP layer over the access core.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	resolver   *access.Resolver
	selections *access.SelectionStore
	evaluator  *access.Evaluator
	gate       *access.Gate
	subjects   SubjectResolver
	events     *stream.Stream

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, provider access.MembershipProvider, oracle access.DelegationOracle, subjects SubjectResolver, events *stream.Stream) *API {
	resolver := access.NewResolver(provider)
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		resolver:   resolver,
		selections: access.NewSelectionStore(resolver),
		evaluator:  access.NewEvaluator(instrumentOracle(oracle)),
		gate:       access.NewGate(resolver),
		subjects:   subjects,
		events:     events,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session persistence boundary
	a.mux.HandleFunc("/selected-role", a.handleSelectedRole)
	a.mux.HandleFunc("/sign-out", a.handleSignOut)
	a.mux.HandleFunc("/role-options", a.handleRoleOptions)
	a.mux.HandleFunc("/can-perform", a.handleCanPerform)

	// session token issuance + diagnostics
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)
	a.mux.HandleFunc("/v1/events", a.Events)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// instrumentOracle counts delegation checks without touching the evaluator's
// deny-on-error semantics.
func instrumentOracle(oracle access.DelegationOracle) access.DelegationOracle {
	if oracle == nil {
		return nil
	}
	return access.DelegationOracleFunc(func(ctx context.Context, userID, organizationID, classroomID string) (bool, error) {
		allowed, err := oracle.TutorCanRegister(ctx, userID, organizationID, classroomID)
		switch {
		case err != nil:
			obs.ObserveDelegationCheck("error")
		case allowed:
			obs.ObserveDelegationCheck("allowed")
		default:
			obs.ObserveDelegationCheck("denied")
		}
		return allowed, err
	})
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = Logging(h)
	h = RequestID(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "asiste-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "asiste-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
