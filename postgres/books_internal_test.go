package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libralend/lending-core-go/lending"
)

func Test_SearchDataset_EscapesLikeWildcardsInTitle(t *testing.T) {
	// arrange
	q := queries{tables: tablesWithPrefix("")}

	// act
	sqlQuery, _, err := q.searchDataset(lending.BookSearch{Title: "100% Proof"}).ToSQL()

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `100\% Proof`, "a literal %% in the search term must not act as a wildcard")
}

func Test_SearchDataset_EscapesLikeWildcardsInAuthorName(t *testing.T) {
	// arrange
	q := queries{tables: tablesWithPrefix("")}

	// act
	sqlQuery, _, err := q.searchDataset(lending.BookSearch{AuthorName: "mr_x"}).ToSQL()

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `mr\_x`, "a literal _ in the search term must not act as a wildcard")
}

func Test_EscapeLikePattern(t *testing.T) {
	tests := []struct {
		name string
		term string
		want string
	}{
		{name: "percent", term: "100%", want: `100\%`},
		{name: "underscore", term: "snake_case", want: `snake\_case`},
		{name: "backslash", term: `a\b`, want: `a\\b`},
		{name: "plain term untouched", term: "darkness", want: "darkness"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, escapeLikePattern(test.term))
		})
	}
}
