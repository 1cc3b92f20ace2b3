package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/libralend/lending-core-go/lending"
)

const actionGetUser = "get user"

func (q queries) GetUser(ctx context.Context, id uuid.UUID) (lending.User, error) {
	dataset := builder.From(q.tables.users).
		Select(colID, colEmail, colUsername, colActive, colCreatedAt).
		Where(goqu.C(colID).Eq(id.String()))

	rows, err := q.runQuery(ctx, actionGetUser, dataset)
	if err != nil {
		return lending.User{}, err
	}
	defer q.closeRows(rows)

	if !rows.Next() {
		return lending.User{}, lending.ErrUserNotFound
	}

	var row struct {
		id        string
		email     string
		username  string
		active    bool
		createdAt time.Time
	}

	if scanErr := rows.Scan(&row.id, &row.email, &row.username, &row.active, &row.createdAt); scanErr != nil {
		q.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
		return lending.User{}, errors.Join(ErrScanFailed, scanErr)
	}

	userID, err := parseID(row.id)
	if err != nil {
		return lending.User{}, err
	}

	return lending.User{
		ID:        userID,
		Email:     row.email,
		Username:  row.username,
		Active:    row.active,
		CreatedAt: row.createdAt.UTC(),
	}, nil
}
