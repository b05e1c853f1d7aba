package hub

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/pipeline"
)

// Runner performs one sync pass. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

type HubMsg interface{ isHubMsg() }

// TriggerSync starts a pass unless one is running. Reply receives whether
// a pass was started.
type TriggerSync struct {
	Reply chan bool
}

type GetStatus struct {
	Reply chan Status
}

type ShutdownHub struct{}

// SubscribeStatus registers Outbox for status pushes. The current status is
// sent right away; later ones follow every pass start and finish. The hub
// closes Outbox on unsubscribe, on shutdown, or when the subscriber falls
// behind.
type SubscribeStatus struct {
	ClientID string
	Outbox   chan Status
}

type UnsubscribeStatus struct{ ClientID string }

type runDone struct {
	summary  pipeline.Summary
	err      error
	finished time.Time
}

func (TriggerSync) isHubMsg()       {}
func (GetStatus) isHubMsg()         {}
func (ShutdownHub) isHubMsg()       {}
func (SubscribeStatus) isHubMsg()   {}
func (UnsubscribeStatus) isHubMsg() {}
func (runDone) isHubMsg()           {}

type Status struct {
	Running      bool      `json:"running"`
	Runs         int       `json:"runs"`
	LastRunID    string    `json:"lastRunId,omitempty"`
	LastStarted  time.Time `json:"lastStarted,omitempty"`
	LastFinished time.Time `json:"lastFinished,omitempty"`
	LastRows     int       `json:"lastRows"`
	LastFailures int       `json:"lastFailures"`
	LastError    string    `json:"lastError,omitempty"`
}

// Hub owns the sync status and makes sure at most one pass runs at a time.
// All state is confined to the loop goroutine.
type Hub struct {
	inbox    chan HubMsg
	runner   Runner
	interval time.Duration
	logger   *zap.Logger
	status   Status
	subs     map[string]chan Status
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewHub starts the loop. A positive interval also triggers a pass on every
// tick.
func NewHub(parent context.Context, runner Runner, interval time.Duration, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		runner:   runner,
		interval: interval,
		logger:   logger,
		subs:     make(map[string]chan Status),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed when the loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Close stops the loop and waits for it to exit. A running pass sees its
// context cancelled.
func (h *Hub) Close() {
	h.cancel()
	<-h.done
}

// Subscribe returns a channel of status updates for clientID.
func (h *Hub) Subscribe(ctx context.Context, clientID string) (<-chan Status, error) {
	out := make(chan Status, 8)
	if err := h.send(ctx, SubscribeStatus{ClientID: clientID, Outbox: out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Hub) Unsubscribe(clientID string) {
	_ = h.send(context.Background(), UnsubscribeStatus{ClientID: clientID})
}

// Trigger asks for a pass and reports whether one was started.
func (h *Hub) Trigger(ctx context.Context) (bool, error) {
	reply := make(chan bool, 1)
	if err := h.send(ctx, TriggerSync{Reply: reply}); err != nil {
		return false, err
	}
	select {
	case started := <-reply:
		return started, nil
	case <-h.done:
		return false, context.Canceled
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (h *Hub) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	if err := h.send(ctx, GetStatus{Reply: reply}); err != nil {
		return Status{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-h.done:
		return Status{}, context.Canceled
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	if err := h.ctx.Err(); err != nil {
		return err
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) loop() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.interval > 0 {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-h.ctx.Done():
			h.closeSubscribers()
			return

		case <-tick:
			h.start()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case TriggerSync:
				msg.Reply <- h.start()

			case GetStatus:
				msg.Reply <- h.status

			case runDone:
				h.status.Running = false
				h.status.LastRunID = msg.summary.RunID
				h.status.LastFinished = msg.finished
				h.status.LastRows = msg.summary.Rows
				h.status.LastFailures = len(multierr.Errors(msg.summary.Failures))
				h.status.LastError = ""
				if msg.err != nil {
					h.status.LastError = msg.err.Error()
				}
				h.broadcast()

			case SubscribeStatus:
				if old, ok := h.subs[msg.ClientID]; ok {
					close(old)
				}
				h.subs[msg.ClientID] = msg.Outbox
				h.push(msg.ClientID, msg.Outbox)

			case UnsubscribeStatus:
				if ch, ok := h.subs[msg.ClientID]; ok {
					close(ch)
					delete(h.subs, msg.ClientID)
				}

			case ShutdownHub:
				h.cancel()
			}
		}
	}
}

func (h *Hub) start() bool {
	if h.status.Running {
		h.logger.Debug("sync already running")
		return false
	}
	h.status.Running = true
	h.status.Runs++
	h.status.LastStarted = time.Now()
	h.broadcast()

	go func() {
		sum, err := h.runner.Run(h.ctx)
		if err != nil {
			h.logger.Error("sync pass failed", zap.String("run_id", sum.RunID), zap.Error(err))
		}
		select {
		case h.inbox <- runDone{summary: sum, err: err, finished: time.Now()}:
		case <-h.ctx.Done():
		}
	}()
	return true
}

func (h *Hub) broadcast() {
	for id, ch := range h.subs {
		h.push(id, ch)
	}
}

// push drops a subscriber whose outbox is full.
func (h *Hub) push(id string, ch chan Status) {
	select {
	case ch <- h.status:
	default:
		h.logger.Debug("dropping slow status subscriber", zap.String("client_id", id))
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hub) closeSubscribers() {
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
