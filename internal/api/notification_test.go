package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/notify"
)

func TestListAndDismissNotifications(t *testing.T) {
	g := newGateway(t)
	n := g.center.Success("Recipe liked!")

	w := g.do(t, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Notifications []notify.Notification `json:"notifications"`
	}](t, w).Notifications
	require.Len(t, list, 1)
	assert.Equal(t, "Recipe liked!", list[0].Message)

	assert.Equal(t, http.StatusNoContent, g.do(t, http.MethodDelete, "/api/v1/notifications/"+n.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, g.do(t, http.MethodDelete, "/api/v1/notifications/"+n.ID, nil).Code)
	assert.Empty(t, g.center.List())
}
