package realtime

import "sync"

// Subscriber holds one client's subscriptions, at most one per scope.
type Subscriber struct {
	hub    *Hub
	mu     sync.Mutex
	scopes map[string]uint64
}

func CreateSubscriber(hub *Hub) *Subscriber {
	return &Subscriber{
		hub:    hub,
		scopes: make(map[string]uint64),
	}
}

// Subscribe opens a subscription on scope, tearing down any previous one on
// the same scope first. onError may be nil. When the feed is unavailable the
// error goes to onError and no subscription is left behind.
func (s *Subscriber) Subscribe(scope string, filter Filter, onChange func(ChangeEvent), onError func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.scopes[scope]; ok {
		s.hub.remove(id)
		delete(s.scopes, scope)
	}

	id, err := s.hub.add(subscription{filter: filter, onChange: onChange, onError: onError})
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}

	s.scopes[scope] = id
}

// Unsubscribe is safe to call any number of times.
func (s *Subscriber) Unsubscribe(scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.scopes[scope]
	if !ok {
		return
	}

	s.hub.remove(id)
	delete(s.scopes, scope)
}

func (s *Subscriber) Active(scope string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.scopes[scope]
	return ok
}

func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for scope, id := range s.scopes {
		s.hub.remove(id)
		delete(s.scopes, scope)
	}
}
