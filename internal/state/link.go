package state

import "context"

// Link keeps the recipe flags and message list in step with sign-in and
// sign-out until ctx is done. The returned channel closes when it stops.
func Link(ctx context.Context, auth *AuthProvider, recipes *RecipeProvider, messages *MessageProvider) <-chan struct{} {
	done := make(chan struct{})
	states, cancel := auth.Subscribe()
	go func() {
		defer close(done)
		defer cancel()
		var last AuthState
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-states:
				if !ok {
					return
				}
				if st.Status == StatusLoading || sameUser(st, last) {
					continue
				}
				last = st
				if recipes != nil {
					recipes.Rederive()
				}
				if messages != nil && st.Status == StatusUnauthenticated {
					messages.Reset()
				}
			}
		}
	}()
	return done
}

func sameUser(a, b AuthState) bool {
	if a.Status != b.Status {
		return false
	}
	if a.User == nil || b.User == nil {
		return a.User == b.User
	}
	return a.User.ID == b.User.ID
}
