package database

import (
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_UsersFirst(t *testing.T) {
	list := PersistentModels()
	require.NotEmpty(t, list)
	_, ok := list[0].(*models.User)
	require.True(t, ok, "users must migrate before tables that reference them")
}
