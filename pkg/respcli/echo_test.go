package respcli_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jaffee/respcli/pkg/respcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcho(t *testing.T) {
	c := &respcli.Echo{}

	cases := []struct {
		msgs []respcli.Message
		exp  string
	}{
		{msgs: nil, exp: "0 msgs"},
		{
			msgs: []respcli.Message{respcli.UserMsg("hello")},
			exp:  "msgs: 1, role: assistant, content: hello",
		},
	}

	for i, tst := range cases {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			resp, err := c.CreateResponse(context.Background(), &respcli.Request{Input: tst.msgs})
			require.NoError(t, err)

			assert.Equal(t, tst.exp, resp.OutputText())
			require.Len(t, resp.Output, 1)
			assert.Equal(t, respcli.RoleAssistant, resp.Output[0].Role)
			assert.True(t, resp.Store)
			assert.Equal(t, respcli.TruncationDisabled, resp.Truncation)
		})
	}
}

func TestEchoChaining(t *testing.T) {
	ctx := context.Background()
	c := &respcli.Echo{}

	first, err := c.CreateResponse(ctx, &respcli.Request{
		Input:        []respcli.Message{respcli.UserMsg("What is the capital of France?")},
		Instructions: "Write only in haiku format.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Write only in haiku format.", first.Instructions)
	// instructions are sent as a leading system message
	assert.Equal(t, "msgs: 2, role: assistant, content: What is the capital of France?", first.OutputText())

	second, err := c.CreateResponse(ctx, &respcli.Request{
		Input:              []respcli.Message{respcli.UserMsg("Now explain")},
		PreviousResponseID: first.ID,
		Store:              respcli.Bool(false),
	})
	require.NoError(t, err)
	assert.Empty(t, second.Instructions)
	assert.Equal(t, first.ID, second.PreviousResponseID)
	assert.Equal(t, "msgs: 3, role: assistant, content: Now explain", second.OutputText())

	items, err := c.ListInputItems(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []respcli.Message{respcli.UserMsg("What is the capital of France?")}, items)

	// the second response was not stored so it cannot be continued
	_, err = c.CreateResponse(ctx, &respcli.Request{
		Input:              []respcli.Message{respcli.UserMsg("again")},
		PreviousResponseID: second.ID,
	})
	require.ErrorIs(t, err, respcli.ErrResponseNotFound)
	_, err = c.ListInputItems(ctx, second.ID)
	require.ErrorIs(t, err, respcli.ErrResponseNotFound)
}

func TestEchoTruncation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		truncation string
		expErr     error
	}{
		{truncation: respcli.TruncationAuto},
		{truncation: respcli.TruncationDisabled, expErr: respcli.ErrContextLength},
		{truncation: "", expErr: respcli.ErrContextLength},
	}

	for i, tst := range cases {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			c := &respcli.Echo{ContextLimit: 4}
			resp, err := c.CreateResponse(ctx, &respcli.Request{Input: []respcli.Message{respcli.UserMsg("start")}})
			require.NoError(t, err)

			var lastErr error
			for turn := 0; turn < 4; turn++ {
				next, err := c.CreateResponse(ctx, &respcli.Request{
					Input:              []respcli.Message{respcli.UserMsg(fmt.Sprintf("more %d", turn))},
					PreviousResponseID: resp.ID,
					Truncation:         tst.truncation,
				})
				if err != nil {
					lastErr = err
					break
				}
				resp = next
			}

			if tst.expErr != nil {
				require.ErrorIs(t, lastErr, tst.expErr)
				return
			}
			require.NoError(t, lastErr)
			items, err := c.ListInputItems(ctx, resp.ID)
			require.NoError(t, err)
			assert.Len(t, items, 4)
			assert.Equal(t, respcli.UserMsg("more 3"), items[3])
		})
	}
}
