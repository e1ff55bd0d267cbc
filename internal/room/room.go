// Package room coordinates one tab's view of a profile-wide chat room: it
// owns the tab's identity, message log mirror and presence directory, and
// keeps them in sync with the other tabs over a broadcast transport.
package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/tabroom/internal/bus"
	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/matheus3301/tabroom/internal/chatlog"
	"github.com/matheus3301/tabroom/internal/notify"
	"github.com/matheus3301/tabroom/internal/presence"
	"github.com/matheus3301/tabroom/internal/preview"
	"github.com/matheus3301/tabroom/internal/status"
	"github.com/matheus3301/tabroom/internal/transport"
	"go.uber.org/zap"
)

var (
	ErrNotStarted     = errors.New("room not started")
	ErrAlreadyStarted = errors.New("room already started")
	ErrClosed         = errors.New("room closed")
)

// Bus event kinds mirrored from room observers.
const (
	EventMessage          = "room.message"
	EventSelectionChanged = "room.selection_changed"
	EventDirectoryChanged = "room.directory_changed"
	EventHistoryCleared   = "room.history_cleared"
)

// Identity hands out the tab's user.
type Identity interface {
	GetOrCreate() chat.User
}

// PreviewLookup resolves link metadata. Implementations report failure as nil.
type PreviewLookup interface {
	Lookup(ctx context.Context, url string) *chat.LinkPreview
}

// Options tunes a Room. Zero values are usable.
type Options struct {
	// PreviewTimeout bounds a send's preview lookup. Zero leaves it to ctx.
	PreviewTimeout time.Duration
	// ReconcileInterval, when positive, periodically rebroadcasts the
	// directory as a user list.
	ReconcileInterval time.Duration
	// EventBuffer is the inbound transport buffer size.
	EventBuffer int
}

// Deps are the collaborators of a Room. Identity, Transport are required.
type Deps struct {
	Identity Identity
	Log      *chatlog.Log
	// Directory is mutated by the room loop only. Membership changes are
	// observed with Room.OnDirectoryChanged.
	Directory *presence.Directory
	Transport transport.Transport
	Preview   PreviewLookup
	Machine   *status.Machine
	Bus       *bus.Bus
	Logger    *zap.Logger
	Options   Options
	Now       func() time.Time
}

// Room is the sync coordinator of one tab. Inbound events and state changes
// are applied by a single loop goroutine; getters may be called from any
// goroutine, including observers.
//
// Observers run synchronously on the loop, in registration order. They must
// not call SendMessage, SetSelectedPeer or ClearHistory, which wait for the
// loop.
type Room struct {
	identity  Identity
	log       *chatlog.Log
	dir       *presence.Directory
	transport transport.Transport
	preview   PreviewLookup
	machine   *status.Machine
	bus       *bus.Bus
	logger    *zap.Logger
	opts      Options
	now       func() time.Time

	// mu guards the state below; the loop is the only writer.
	mu       sync.RWMutex
	self     chat.User
	selected string

	onMessage   notify.List[chat.Message]
	onSelection notify.List[string]
	onDirectory notify.List[[]chat.User]

	lifeMu      sync.Mutex
	started     bool
	closed      bool
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	ops         chan func()
	stop        chan struct{}
	done        chan struct{}
}

// New wires a Room. Nothing happens until Start.
func New(d Deps) (*Room, error) {
	if d.Identity == nil {
		return nil, fmt.Errorf("room: identity is required")
	}
	if d.Transport == nil {
		return nil, fmt.Errorf("room: transport is required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Log == nil {
		d.Log = chatlog.New(nil, d.Logger)
	}
	if d.Directory == nil {
		d.Directory = presence.New()
	}
	if d.Machine == nil {
		d.Machine = status.NewMachine(d.Bus)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Options.EventBuffer <= 0 {
		d.Options.EventBuffer = 256
	}

	return &Room{
		identity:  d.Identity,
		log:       d.Log,
		dir:       d.Directory,
		transport: d.Transport,
		preview:   d.Preview,
		machine:   d.Machine,
		bus:       d.Bus,
		logger:    d.Logger,
		opts:      d.Options,
		now:       d.Now,
		ops:       make(chan func()),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start boots the tab: it resolves the identity, replays the durable log,
// registers self in the directory, subscribes to the room and announces
// itself with a join.
func (r *Room) Start(ctx context.Context) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.started {
		return ErrAlreadyStarted
	}

	events, unsub, err := r.transport.Subscribe(ctx, r.opts.EventBuffer)
	if err != nil {
		return fmt.Errorf("subscribe to room: %w", err)
	}

	self := r.identity.GetOrCreate()
	r.mu.Lock()
	r.self = self
	replayed := r.log.LoadFromStorage(ctx)
	joined := r.dir.ApplyJoin(self)
	users := r.dir.ListAll()
	r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.unsubscribe = unsub
	r.started = true

	if joined {
		r.emitDirectory(users)
	}
	r.publish(ctx, transport.Join(self))
	if err := r.machine.Transition(status.Joined); err != nil {
		r.logger.Warn("unexpected tab state", zap.Error(err))
	}
	r.logger.Info("joined room",
		zap.String("user_id", self.ID),
		zap.String("name", self.DisplayName),
		zap.Int("messages", len(replayed)),
	)

	go r.loop(events)
	return nil
}

// Close unloads the tab: it announces a leave (best effort), stops the loop
// and unsubscribes. The transport itself is closed by its owner. Close is
// idempotent.
func (r *Room) Close(ctx context.Context) error {
	r.lifeMu.Lock()
	if r.closed {
		r.lifeMu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	r.lifeMu.Unlock()

	if _, err := r.machine.Advance(status.Unloading); err != nil {
		r.logger.Warn("unexpected tab state", zap.Error(err))
	}
	if !started {
		return nil
	}

	r.publish(ctx, transport.Leave(r.CurrentUser().ID))
	close(r.stop)
	<-r.done
	r.unsubscribe()
	r.cancel()
	r.logger.Info("left room")
	return nil
}

// SendMessage sends text to the user to. Blank text or an empty recipient is
// ignored and returns (nil, nil). A URL in the text is resolved to a link
// preview before the message is committed; the lookup runs on the caller's
// goroutine so the loop keeps serving other tabs meanwhile.
func (r *Room) SendMessage(ctx context.Context, to, text string) (*chat.Message, error) {
	if strings.TrimSpace(text) == "" || to == "" {
		return nil, nil
	}
	if err := r.checkRunning(); err != nil {
		return nil, err
	}

	m := chat.Message{
		ID:            uuid.NewString(),
		SenderID:      r.CurrentUser().ID,
		RecipientID:   to,
		Text:          text,
		SentAtEpochMs: r.now().UnixMilli(),
	}
	if target, ok := preview.ExtractURL(text); ok && r.preview != nil {
		m.LinkPreview = r.lookupPreview(ctx, target)
	}

	if err := r.do(ctx, func() { r.commit(m) }); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetSelectedPeer changes the local conversation selection. Selection is
// per tab and never broadcast.
func (r *Room) SetSelectedPeer(ctx context.Context, userID string) error {
	if err := r.checkRunning(); err != nil {
		return err
	}
	return r.do(ctx, func() {
		r.mu.Lock()
		r.selected = userID
		r.mu.Unlock()
		r.emitSelection(userID)
	})
}

// ClearHistory deletes every message of the profile's durable log and empties
// this tab's mirror. Other tabs keep their mirrors until they reload.
func (r *Room) ClearHistory(ctx context.Context) error {
	if err := r.checkRunning(); err != nil {
		return err
	}
	var err error
	if derr := r.do(ctx, func() {
		r.mu.Lock()
		err = r.log.Clear(r.ctx)
		r.mu.Unlock()
		if err == nil {
			r.mirror(EventHistoryCleared, nil)
		}
	}); derr != nil {
		return derr
	}
	return err
}

// CurrentUser returns the tab's identity. It is the zero User before Start.
func (r *Room) CurrentUser() chat.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.self
}

// SelectedPeer returns the selected conversation peer, or "".
func (r *Room) SelectedPeer() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// ListUsers returns every known user, self included.
func (r *Room) ListUsers() []chat.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir.ListAll()
}

// UserCount returns the number of known users, self included.
func (r *Room) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir.Len()
}

// Messages returns the whole log mirror in append order.
func (r *Room) Messages() []chat.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.log.Snapshot()
}

// MessageCount returns the size of the log mirror.
func (r *Room) MessageCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.log.Len()
}

// Conversation returns the messages between self and the selected peer.
func (r *Room) Conversation() []chat.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selected == "" {
		return nil
	}
	return r.log.Query(r.self.ID, r.selected)
}

// State returns the tab's lifecycle state.
func (r *Room) State() status.State {
	return r.machine.Current()
}

// StateSince returns when the current lifecycle state was entered.
func (r *Room) StateSince() time.Time {
	return r.machine.Since()
}

// OnMessage registers fn for messages that should appear in the open
// conversation: every own send, and new inbound messages between self and
// the selected peer.
func (r *Room) OnMessage(fn func(chat.Message)) func() {
	return r.onMessage.Add(fn)
}

// OnSelectionChanged registers fn for selection changes.
func (r *Room) OnSelectionChanged(fn func(string)) func() {
	return r.onSelection.Add(fn)
}

// OnDirectoryChanged registers fn for directory membership changes.
func (r *Room) OnDirectoryChanged(fn func([]chat.User)) func() {
	return r.onDirectory.Add(fn)
}

func (r *Room) lookupPreview(ctx context.Context, target string) *chat.LinkPreview {
	if r.opts.PreviewTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.PreviewTimeout)
		defer cancel()
	}
	return r.preview.Lookup(ctx, target)
}

func (r *Room) checkRunning() error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	switch {
	case r.closed:
		return ErrClosed
	case !r.started:
		return ErrNotStarted
	}
	return nil
}
