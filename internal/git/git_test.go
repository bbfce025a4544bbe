package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGit replaces runGit with canned responses keyed by subcommand.
func stubGit(t *testing.T, responses map[string]string) {
	t.Helper()
	original := runGit
	t.Cleanup(func() { runGit = original })
	runGit = func(_ context.Context, _ string, args ...string) (string, error) {
		key := args[0]
		out, ok := responses[key]
		if !ok {
			return "", fmt.Errorf("unexpected git %s", strings.Join(args, " "))
		}
		return out, nil
	}
}

func TestCurrentBranch(t *testing.T) {
	stubGit(t, map[string]string{"rev-parse": "feature/PROJ-42-login\n"})

	branch, err := New(".", "origin", "main").CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "feature/PROJ-42-login", branch)
}

func TestChanges_PorcelainParsing(t *testing.T) {
	stubGit(t, map[string]string{"status": strings.Join([]string{
		" M src/api/users.ts",
		"A  src/api/orders.ts",
		"?? notes.txt",
		`R  src/old.ts -> src/new.ts`,
		"",
	}, "\n")})

	changes, err := New(".", "", "").Changes(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 4)

	assert.Equal(t, Change{Path: "src/api/users.ts", Code: " M"}, changes[0])
	assert.Equal(t, Change{Path: "src/api/orders.ts", Code: "A "}, changes[1])
	assert.Equal(t, Change{Path: "notes.txt", Code: "??"}, changes[2])
	assert.Equal(t, "src/new.ts", changes[3].Path, "renames report the new path")
}

func TestAheadBehind(t *testing.T) {
	stubGit(t, map[string]string{"rev-list": "2\t5\n"})

	ahead, behind, err := New(".", "origin", "main").AheadBehind(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, ahead)
	assert.Equal(t, 2, behind)
}

func TestStatus_DivergenceErrorsDegrade(t *testing.T) {
	original := runGit
	t.Cleanup(func() { runGit = original })
	runGit = func(_ context.Context, _ string, args ...string) (string, error) {
		switch args[0] {
		case "rev-parse":
			return "main\n", nil
		case "status":
			return " M src/a.ts\n", nil
		case "rev-list":
			return "", errors.New("no upstream configured")
		}
		return "", fmt.Errorf("unexpected git %v", args)
	}

	st, err := New(".", "origin", "main").Status(context.Background())
	require.NoError(t, err, "a missing upstream must not fail the whole status")
	assert.Equal(t, "main", st.Branch)
	assert.True(t, st.Dirty())
	assert.Zero(t, st.Ahead)
	assert.Zero(t, st.Behind)
}

func TestSuggestCommitMessage(t *testing.T) {
	cases := []struct {
		name      string
		porcelain string
		ticket    string
		want      string
	}{
		{
			name:      "single modified source file",
			porcelain: " M src/api/users.ts\n",
			want:      "fix(api): update users.ts",
		},
		{
			name:      "new files become a feat",
			porcelain: "A  src/api/orders.ts\n M src/api/users.ts\n",
			want:      "feat(api): update orders.ts and users.ts",
		},
		{
			name:      "tests only",
			porcelain: " M src/api/users.spec.ts\n M src/api/orders.spec.ts\n",
			want:      "test(api): update orders.spec.ts and users.spec.ts",
		},
		{
			name:      "docs only",
			porcelain: " M README.md\n",
			want:      "docs: update README.md",
		},
		{
			name:      "mixed scopes drop the scope",
			porcelain: " M src/api/users.ts\n M src/ui/button.tsx\n D old/legacy.ts\n",
			want:      "chore: update button.tsx and 2 more files",
		},
		{
			name:      "ticket reference appended",
			porcelain: " M src/api/users.ts\n",
			ticket:    "PROJ-42",
			want:      "fix(api): update users.ts\n\nRefs: PROJ-42",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stubGit(t, map[string]string{"status": tc.porcelain})

			msg, err := New(".", "", "").SuggestCommitMessage(context.Background(), tc.ticket)
			require.NoError(t, err)
			assert.Equal(t, tc.want, msg)
		})
	}
}

func TestSuggestCommitMessage_CleanTree(t *testing.T) {
	stubGit(t, map[string]string{"status": ""})

	_, err := New(".", "", "").SuggestCommitMessage(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean")
}

func TestSuggestCommitMessage_Deterministic(t *testing.T) {
	stubGit(t, map[string]string{"status": " M src/b.ts\n M src/a.ts\nA  src/c.ts\n"})

	c := New(".", "", "")
	first, err := c.SuggestCommitMessage(context.Background(), "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.SuggestCommitMessage(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
