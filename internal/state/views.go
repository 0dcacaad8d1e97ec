package state

import (
	"time"

	"github.com/slackemu/emulator/internal/apierr"
	"github.com/slackemu/emulator/internal/model"
)

const triggerTTL = 30 * time.Second

// NewTrigger mints a trigger_id bound to the given user/channel context.
func (s *State) NewTrigger(ctx model.TriggerContext) string {
	ctx.CreatedAt = time.Now().UnixMilli()
	id := newTriggerID()
	s.mu.Lock()
	s.triggers[id] = &ctx
	s.mu.Unlock()
	return id
}

// ConsumeTrigger returns and deletes the trigger context for id if it
// hasn't expired. A trigger may be consumed at most once.
func (s *State) ConsumeTrigger(id string) (*model.TriggerContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.triggers[id]
	if !ok {
		return nil, apierr.New(apierr.ExpiredTriggerID, "trigger_id expired or unknown")
	}
	delete(s.triggers, id)
	if time.Since(time.UnixMilli(ctx.CreatedAt)) > triggerTTL {
		return nil, apierr.New(apierr.ExpiredTriggerID, "trigger_id expired")
	}
	return ctx, nil
}

// OpenView consumes triggerID, assigns a fresh view id, stores the view,
// and emits view_open.
func (s *State) OpenView(triggerID string, view map[string]interface{}, botID string) (*model.View, error) {
	ctx, err := s.ConsumeTrigger(triggerID)
	if err != nil {
		return nil, err
	}
	v := &model.View{
		ID:        newViewID(),
		View:      view,
		TriggerID: triggerID,
		UserID:    ctx.UserID,
		ChannelID: ctx.ChannelID,
		BotID:     botID,
	}
	s.mu.Lock()
	s.views[v.ID] = v
	cp := *v
	s.mu.Unlock()

	s.emit(EventViewOpen, map[string]interface{}{"view": cp})
	return &cp, nil
}

// UpdateView replaces the stored view's payload and emits view_update.
func (s *State) UpdateView(viewID string, view map[string]interface{}) (*model.View, error) {
	s.mu.Lock()
	v, ok := s.views[viewID]
	if !ok {
		s.mu.Unlock()
		return nil, apierr.New(apierr.ViewNotFound, "view not found")
	}
	v.View = view
	cp := *v
	s.mu.Unlock()

	s.emit(EventViewUpdate, map[string]interface{}{"view": cp})
	return &cp, nil
}

// CloseView removes the stored view and emits view_close.
func (s *State) CloseView(viewID string) error {
	s.mu.Lock()
	v, ok := s.views[viewID]
	if !ok {
		s.mu.Unlock()
		return apierr.New(apierr.ViewNotFound, "view not found")
	}
	delete(s.views, viewID)
	cp := *v
	s.mu.Unlock()

	s.emit(EventViewClose, map[string]interface{}{"view": cp})
	return nil
}

// GetView returns a view by id.
func (s *State) GetView(viewID string) (*model.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[viewID]
	if !ok {
		return nil, false
	}
	cp := *v
	return &cp, true
}
