package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tweetty/auth"
	"tweetty/domain"
)

func TestMakeAPIKey(t *testing.T) {
	a, err := auth.MakeAPIKey("tw_")
	require.NoError(t, err)
	b, err := auth.MakeAPIKey("tw_")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(a, "tw_"))
	require.NotEqual(t, a, b)
	// 32 bytes encode to 43 unpadded base64 characters.
	require.Len(t, a, len("tw_")+43)
	require.GreaterOrEqual(t, len(a), 30)
	require.NotContains(t, a, "=")
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, auth.GetUser(ctx))

	user := &domain.User{ID: 7, Nickname: "someone"}
	ctx = auth.SetUser(ctx, user)
	require.Same(t, user, auth.GetUser(ctx))
}
