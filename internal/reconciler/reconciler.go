package reconciler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/internal/models"
	"github.com/kodinohjaus/gateway/pkg/socket"
	"github.com/kodinohjaus/gateway/pkg/token"
)

// Event names on the wire.
const (
	requestEvent  = "request"
	responseEvent = "response"
)

// User-visible failure messages. Each failure mode gets its own text so the
// UI never collapses distinct causes into one generic error.
const (
	MsgNotConnected = "not connected to server"
	MsgTimeout      = "request timed out"
	MsgCancelled    = "request cancelled"
)

// DefaultRequestTimeout bounds the wait for a reply when configuration does
// not override it.
const DefaultRequestTimeout = 12 * time.Second

// Requester is the awaitable request/response operation offered to the rest
// of the system.
type Requester interface {
	// Request sends the envelope and, on an auth-failure reply, runs one
	// re-authentication and a single retry.
	Request(ctx context.Context, env models.Envelope) models.Response
	// RequestOnce sends the envelope with no auth retry. Used by the
	// authentication flows themselves to avoid recursion.
	RequestOnce(ctx context.Context, env models.Envelope) models.Response
}

// Reauthenticator is the single-flight re-authentication entry point the
// reconciler calls after classifying an auth failure.
type Reauthenticator interface {
	TriggerReauthentication(ctx context.Context) error
}

// waiter is one outstanding request attempt. The channel is buffered and the
// once guard guarantees at most one settlement write, so a late response
// racing a timeout can never block or double-settle.
type waiter struct {
	id   string
	ch   chan models.Response
	once sync.Once
}

func (w *waiter) settle(resp models.Response) {
	w.once.Do(func() { w.ch <- resp })
}

// inflightCall is the single-flight slot for one request kind. Concurrent
// callers with the same fingerprint share its outcome; callers with a
// different payload wait for the slot to free.
type inflightCall struct {
	fingerprint string
	done        chan struct{}
	resp        models.Response
}

// Reconciler turns fire-and-forget event emission into correlated awaitable
// request/response pairs with timeout, token injection, and a bounded
// retry-after-reauthentication policy.
type Reconciler struct {
	conn       socket.Connection
	tokens     token.Store
	classifier Classifier
	timeout    time.Duration
	logger     zerolog.Logger

	reauth Reauthenticator // set after construction; auth depends on the reconciler

	waiters  cmap.ConcurrentMap[string, *waiter]
	inflight cmap.ConcurrentMap[string, *inflightCall]

	// FIFO of outstanding correlation ids, for backends that do not echo the
	// envelope id: the oldest outstanding attempt claims an uncorrelated
	// reply. Combined with the per-kind single-flight table this is the
	// documented mitigation, not perfect correlation.
	orderMu sync.Mutex
	order   []string

	handlerID int
}

// New creates a Reconciler on top of the given transport and token store.
func New(conn socket.Connection, tokens token.Store, classifier Classifier,
	timeout time.Duration, logger zerolog.Logger) *Reconciler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Reconciler{
		conn:       conn,
		tokens:     tokens,
		classifier: classifier,
		timeout:    timeout,
		logger:     logger,
		waiters:    cmap.New[*waiter](),
		inflight:   cmap.New[*inflightCall](),
	}
}

// SetReauthenticator wires the authentication coordinator in. Must be called
// before the first Request; RequestOnce works without it.
func (r *Reconciler) SetReauthenticator(reauth Reauthenticator) {
	r.reauth = reauth
}

// Start subscribes to the response event stream.
func (r *Reconciler) Start() {
	r.handlerID = r.conn.On(responseEvent, r.handleResponse)
}

// Stop unsubscribes from the response event stream.
func (r *Reconciler) Stop() {
	r.conn.Off(responseEvent, r.handlerID)
}

// Request implements Requester.
func (r *Reconciler) Request(ctx context.Context, env models.Envelope) models.Response {
	return r.do(ctx, env, true)
}

// RequestOnce implements Requester.
func (r *Reconciler) RequestOnce(ctx context.Context, env models.Envelope) models.Response {
	return r.do(ctx, env, false)
}

// do applies the per-kind single-flight policy around execute.
func (r *Reconciler) do(ctx context.Context, env models.Envelope, allowRetry bool) models.Response {
	kind := string(env.Type)
	fp := fingerprint(env)

	for {
		call := &inflightCall{fingerprint: fp, done: make(chan struct{})}
		if r.inflight.SetIfAbsent(kind, call) {
			resp := r.execute(ctx, env, allowRetry)
			call.resp = resp
			r.inflight.Remove(kind)
			close(call.done)
			return resp
		}

		existing, ok := r.inflight.Get(kind)
		if !ok {
			continue // slot freed between SetIfAbsent and Get
		}

		if existing.fingerprint == fp {
			// Identical concurrent query: share the in-flight outcome.
			select {
			case <-existing.done:
				r.logger.Debug().Str("type", kind).Msg("Joined in-flight identical request")
				return existing.resp
			case <-ctx.Done():
				return failure(MsgCancelled)
			}
		}

		// Same kind, different payload: wait for the slot, then try again.
		select {
		case <-existing.done:
		case <-ctx.Done():
			return failure(MsgCancelled)
		}
	}
}

// execute runs attempt 1 and, when the reply classifies as an auth failure,
// triggers re-authentication and runs exactly one retry. Attempt 2's result
// is final.
func (r *Reconciler) execute(ctx context.Context, env models.Envelope, allowRetry bool) models.Response {
	resp := r.send(ctx, env, 1)
	if !allowRetry || resp.Success || !r.classifier.IsAuthFailure(resp) {
		return resp
	}

	if r.reauth == nil {
		r.logger.Warn().Str("type", string(env.Type)).Msg("Auth failure with no reauthenticator wired")
		return resp
	}

	r.logger.Info().Str("type", string(env.Type)).Msg("Auth failure, triggering re-authentication")
	if err := r.reauth.TriggerReauthentication(ctx); err != nil {
		return models.Response{Success: false, Error: err.Error()}
	}

	return r.send(ctx, env, 2)
}

// send performs one attempt: inject the freshest token, emit, await the
// matching reply or a timeout. Always returns a structured result.
func (r *Reconciler) send(ctx context.Context, env models.Envelope, attempt int) models.Response {
	if !r.conn.IsConnected() {
		return failure(MsgNotConnected)
	}

	env.ID = uuid.New().String()
	// Read the store at send time, never a token captured earlier. A pre-set
	// token (explicit verification of a user-supplied value) is preserved.
	if env.Token == "" {
		if cred, ok := r.tokens.Get(); ok {
			env.Token = cred.Token
		}
	}

	w := &waiter{id: env.ID, ch: make(chan models.Response, 1)}
	r.addWaiter(w)
	defer r.removeWaiter(env.ID)

	r.logger.Debug().Str("type", string(env.Type)).Str("id", env.ID).
		Int("attempt", attempt).Msg("Sending request")

	if err := r.conn.Emit(requestEvent, env); err != nil {
		r.logger.Warn().Err(err).Str("type", string(env.Type)).Msg("Failed to emit request")
		return failure(MsgNotConnected)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case resp := <-w.ch:
		return resp
	case <-timer.C:
		w.settle(models.Response{}) // block any late delivery
		r.logger.Warn().Str("type", string(env.Type)).Str("id", env.ID).
			Int("attempt", attempt).Dur("timeout", r.timeout).Msg("Request timed out")
		return failure(MsgTimeout)
	case <-ctx.Done():
		w.settle(models.Response{})
		return failure(MsgCancelled)
	}
}

// handleResponse correlates an inbound reply to its waiter. Replies carrying
// an id settle that exact attempt; replies without one settle the oldest
// outstanding attempt. Replies with no waiter (late arrivals after timeout)
// are discarded.
func (r *Reconciler) handleResponse(data json.RawMessage) {
	var resp models.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		r.logger.Warn().Err(err).Msg("Discarding malformed response")
		return
	}

	id := resp.ID
	if id == "" {
		id = r.oldestOutstanding()
		if id == "" {
			r.logger.Debug().Msg("Uncorrelated response with no outstanding request, discarding")
			return
		}
	}

	w, ok := r.popWaiter(id)
	if !ok {
		r.logger.Debug().Str("id", id).Msg("Late response for settled request, discarding")
		return
	}
	w.settle(resp)
}

func (r *Reconciler) addWaiter(w *waiter) {
	r.waiters.Set(w.id, w)
	r.orderMu.Lock()
	r.order = append(r.order, w.id)
	r.orderMu.Unlock()
}

func (r *Reconciler) removeWaiter(id string) {
	r.popWaiter(id)
}

func (r *Reconciler) popWaiter(id string) (*waiter, bool) {
	w, ok := r.waiters.Pop(id)
	if !ok {
		return nil, false
	}
	r.orderMu.Lock()
	for i, outstanding := range r.order {
		if outstanding == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.orderMu.Unlock()
	return w, true
}

func (r *Reconciler) oldestOutstanding() string {
	r.orderMu.Lock()
	defer r.orderMu.Unlock()
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// fingerprint derives a stable identity for de-duplicating concurrent
// identical queries of the same kind.
func fingerprint(env models.Envelope) string {
	key := struct {
		Data     any                 `json:"data,omitempty"`
		Location *models.Coordinates `json:"location,omitempty"`
		Password string              `json:"password,omitempty"`
	}{env.Data, env.Location, env.Password}

	b, err := json.Marshal(key)
	if err != nil {
		return "unfingerprintable"
	}
	return string(b)
}

func failure(message string) models.Response {
	return models.Response{Success: false, Error: message}
}
