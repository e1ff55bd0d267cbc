package room

import (
	"context"
	"time"

	"github.com/matheus3301/tabroom/internal/bus"
	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/matheus3301/tabroom/internal/metrics"
	"github.com/matheus3301/tabroom/internal/status"
	"github.com/matheus3301/tabroom/internal/transport"
	"go.uber.org/zap"
)

func (r *Room) loop(events <-chan transport.Event) {
	defer close(r.done)

	var reconcile <-chan time.Time
	if r.opts.ReconcileInterval > 0 {
		t := time.NewTicker(r.opts.ReconcileInterval)
		defer t.Stop()
		reconcile = t.C
	}

	for {
		select {
		case <-r.stop:
			return
		case op := <-r.ops:
			op()
		case evt, ok := <-events:
			if !ok {
				r.logger.Warn("room subscription ended")
				events = nil
				continue
			}
			r.handle(evt)
		case <-reconcile:
			r.publish(r.ctx, transport.UserList(r.ListUsers()))
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (r *Room) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case r.ops <- op:
	case <-r.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (r *Room) handle(evt transport.Event) {
	metrics.TransportEvents.WithLabelValues(string(evt.Kind), "in").Inc()

	switch evt.Kind {
	case transport.KindJoin:
		r.handleJoin(*evt.User)
	case transport.KindUserList:
		r.mu.Lock()
		changed := r.dir.ApplyUserList(evt.Users)
		users := r.dir.ListAll()
		r.mu.Unlock()
		if changed {
			r.emitDirectory(users)
		}
	case transport.KindLeave:
		r.handleLeave(evt.UserID)
	case transport.KindMessage:
		r.handleMessage(*evt.Message)
	}
}

// handleJoin merges u. A newcomer gets our own join back so it learns about
// us; a user we already knew (typically answering our own join, or a
// reloaded tab) gets the full user list instead, which ends the exchange.
func (r *Room) handleJoin(u chat.User) {
	r.mu.Lock()
	self := r.self
	added := r.dir.ApplyJoin(u)
	users := r.dir.ListAll()
	r.mu.Unlock()

	if u.ID == self.ID {
		return
	}
	if added {
		r.emitDirectory(users)
		r.publish(r.ctx, transport.Join(self))
	} else {
		r.publish(r.ctx, transport.UserList(users))
	}
	r.activate()
}

func (r *Room) handleLeave(id string) {
	r.mu.Lock()
	if id == r.self.ID {
		r.mu.Unlock()
		return
	}
	changed := r.dir.ApplyLeave(id)
	users := r.dir.ListAll()
	r.mu.Unlock()
	if changed {
		r.emitDirectory(users)
	}
}

func (r *Room) handleMessage(m chat.Message) {
	r.mu.Lock()
	added := r.log.Append(r.ctx, m)
	visible := m.Between(r.self.ID, r.selected) && r.selected != ""
	r.mu.Unlock()

	if !added {
		metrics.MessagesDuplicate.Inc()
		return
	}
	metrics.MessagesReceived.Inc()
	if visible {
		r.emitMessage(m)
	}
}

// commit appends an own message, broadcasts it and shows it locally.
func (r *Room) commit(m chat.Message) {
	r.mu.Lock()
	added := r.log.Append(r.ctx, m)
	r.mu.Unlock()
	if !added {
		return
	}
	r.publish(r.ctx, transport.MessageEvent(m))
	metrics.MessagesSent.Inc()
	r.activate()
	r.emitMessage(m)
}

func (r *Room) publish(ctx context.Context, evt transport.Event) {
	if err := r.transport.Publish(ctx, evt); err != nil {
		r.logger.Warn("broadcast failed", zap.Error(err), zap.String("kind", string(evt.Kind)))
		return
	}
	metrics.TransportEvents.WithLabelValues(string(evt.Kind), "out").Inc()
}

// activate moves a freshly joined tab to ACTIVE on its first interaction.
func (r *Room) activate() {
	if r.machine.Current() != status.Joined {
		return
	}
	if err := r.machine.Transition(status.Active); err != nil {
		r.logger.Debug("tab not activated", zap.Error(err))
	}
}

func (r *Room) emitMessage(m chat.Message) {
	r.onMessage.Emit(m)
	r.mirror(EventMessage, m)
}

func (r *Room) emitSelection(id string) {
	r.onSelection.Emit(id)
	r.mirror(EventSelectionChanged, id)
}

func (r *Room) emitDirectory(users []chat.User) {
	metrics.DirectoryUsers.Set(float64(len(users)))
	r.onDirectory.Emit(users)
	r.mirror(EventDirectoryChanged, users)
}

func (r *Room) mirror(kind string, payload any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(bus.Event{
		Kind:      kind,
		Source:    r.CurrentUser().ID,
		Timestamp: r.now(),
		Payload:   payload,
	})
}
